package intent

import "time"

const (
	CategoryConversation = "conversation"
	CategoryClock        = "clock"
	CategorySite         = "site"
	CategoryUtility      = "utility"
	CategoryEntertain    = "entertainment"
	CategorySearch       = "search"
)

const (
	SearchDelay   = 800 * time.Millisecond
	FallbackDelay = 1000 * time.Millisecond
)

// DefaultJokes are the built-in joke choices.
var DefaultJokes = []string{
	"Why don’t skeletons fight each other? Because they don’t have the guts.",
	"गब्बर: कितने आदमी थे? — बसंती: दो। — गब्बर: तो तालियां तो बजा सकती थी!",
	"Teacher: Why are you late? — Student: Sir, board pe likha tha ‘School Ahead’, so I went home.",
}

// DefaultRules returns the built-in ordered command list.
func DefaultRules() []Rule {
	rules := []Rule{
		{
			Name:     "greeting",
			Category: CategoryConversation,
			Triggers: []string{"hello", "hey", "hi", "namaste", "नमस्ते", "हैलो"},
			Reply:    Reply{Hindi: "नमस्ते, मैं आपकी क्या मदद कर सकती हूँ?", English: "Hello! What can I help you with?"},
			Action:   Action{Kind: ActionSpeak},
		},
		{
			Name:     "identity",
			Category: CategoryConversation,
			Triggers: []string{"who are you", "tum kaun ho", "तुम कौन हो", "what are you"},
			Reply:    Reply{Hindi: "मैं एक वर्चुअल असिस्टेंट हूँ, जिसे विनय डॉन ने बनाया है।", English: "I’m a virtual assistant created by Vinay Don."},
			Action:   Action{Kind: ActionSpeak},
		},
		{
			Name:     "time",
			Category: CategoryClock,
			Triggers: []string{"time", "samay", "समय"},
			Reply:    Reply{Hindi: "अभी समय है {value}", English: "The time is {value}"},
			Action:   Action{Kind: ActionCompute, Compute: ComputeTime},
		},
		{
			Name:     "date",
			Category: CategoryClock,
			Triggers: []string{"date", "tarikh", "तारीख"},
			Reply:    Reply{Hindi: "आज की तारीख है {value}", English: "Today's date is {value}"},
			Action:   Action{Kind: ActionCompute, Compute: ComputeDate},
		},
		{
			Name:     "day",
			Category: CategoryClock,
			Triggers: []string{"day", "aaj ka din", "दिन"},
			Reply:    Reply{Hindi: "आज दिन है {value}", English: "Today is {value}"},
			Action:   Action{Kind: ActionCompute, Compute: ComputeWeekday},
		},
	}

	rules = append(rules,
		site("youtube", "https://www.youtube.com/", "यूट्यूब", "YouTube", "open youtube", "youtube kholo", "यूट्यूब खोलो"),
		site("google", "https://www.google.com/", "गूगल", "Google", "open google", "google kholo", "गूगल खोलो"),
		site("instagram", "https://www.instagram.com/", "इंस्टाग्राम", "Instagram", "open instagram", "instagram kholo", "इंस्टाग्राम खोलो"),
		site("whatsapp", "https://web.whatsapp.com/", "व्हाट्सऐप वेब", "WhatsApp Web", "open whatsapp", "whatsapp kholo", "व्हाट्सऐप खोलो", "व्हाट्सएप खोलो"),
		site("facebook", "https://www.facebook.com/", "फेसबुक", "Facebook", "open facebook", "facebook kholo", "फेसबुक खोलो"),
		site("twitter", "https://twitter.com/", "ट्विटर", "Twitter", "open twitter", "open x", "twitter kholo", "ट्विटर खोलो"),
		site("linkedin", "https://www.linkedin.com/", "लिंक्डइन", "LinkedIn", "open linkedin", "linkedin kholo", "लिंक्डइन खोलो"),
		site("gmail", "https://mail.google.com/", "जीमेल", "Gmail", "open gmail", "gmail kholo", "जीमेल खोलो"),
		site("maps", "https://maps.google.com/", "गूगल मैप्स", "Google Maps", "open maps", "maps kholo", "मैप खोलो", "map kholo"),
		site("github", "https://github.com/", "गिटहब", "GitHub", "open github", "github kholo"),
		site("amazon", "https://www.amazon.in/", "अमेज़न", "Amazon", "open amazon", "amazon kholo", "अमेज़न खोलो"),
	)

	calculator := site("calculator", "https://www.google.com/search?q=calculator", "कैलकुलेटर", "calculator", "open calculator", "calculator kholo", "कैलकुलेटर खोलो")
	calculator.Category = CategoryUtility
	notepad := site("notepad", "https://anotepad.com/", "ऑनलाइन नोटपैड", "online notepad", "open notepad", "notepad kholo", "नोटपैड खोलो")
	notepad.Category = CategoryUtility

	rules = append(rules,
		calculator,
		notepad,
		Rule{
			Name:     "news",
			Category: CategoryUtility,
			Triggers: []string{"news", "samachar", "समाचार", "latest news"},
			Reply:    Reply{Hindi: "ताज़ा समाचार खोल रही हूँ...", English: "Opening latest news..."},
			Action:   Action{Kind: ActionOpenURL, URL: "https://news.google.com/"},
		},
		Rule{
			Name:     "browser_info",
			Category: CategoryUtility,
			Triggers: []string{"browser info", "browser", "which browser", "user agent"},
			Reply:    Reply{Hindi: "आप {value} उपयोग कर रहे हैं।", English: "You are using {value}."},
			Action: Action{
				Kind:        ActionCompute,
				Compute:     ComputeUserAgent,
				Unavailable: Reply{Hindi: "ब्राउज़र जानकारी उपलब्ध नहीं है।", English: "Browser info not available."},
			},
		},
		Rule{
			Name:     "battery",
			Category: CategoryUtility,
			Triggers: []string{"battery", "battery level", "बैटरी"},
			Reply:    Reply{Hindi: "बैटरी {value}% चार्ज है।", English: "Battery is at {value} percent."},
			Action: Action{
				Kind:        ActionCompute,
				Compute:     ComputeBattery,
				Unavailable: Reply{Hindi: "बैटरी जानकारी उपलब्ध नहीं है।", English: "Battery info not available."},
			},
		},
		Rule{
			Name:     "location",
			Category: CategoryUtility,
			Triggers: []string{"my location", "mera location", "मेरा स्थान", "location"},
			Reply:    Reply{Hindi: "मैप्स पर स्थान दिखा रही हूँ...", English: "Opening maps for your location..."},
			Action:   Action{Kind: ActionOpenURL, URL: "https://www.google.com/maps"},
		},
		Rule{
			Name:     "music",
			Category: CategoryEntertain,
			Triggers: []string{"play music", "music chalao", "गाना चलाओ", "gaana chalao"},
			Reply:    Reply{Hindi: "यूट्यूब म्यूज़िक खोल रही हूँ...", English: "Opening YouTube Music..."},
			Action:   Action{Kind: ActionOpenURL, URL: "https://music.youtube.com/"},
		},
		Rule{
			Name:     "joke",
			Category: CategoryEntertain,
			Triggers: []string{"joke", "joke sunao", "चुटकुला", "jokes"},
			Action:   Action{Kind: ActionCompute, Compute: ComputeJoke, Choices: append([]string(nil), DefaultJokes...)},
		},
		Rule{
			Name:     "youtube_search",
			Category: CategorySearch,
			Triggers: []string{"youtube search", "search on youtube", "यूट्यूब खोजो", "यूट्यूब सर्च"},
			Reply:    Reply{Hindi: "यूट्यूब पर खोज रही हूँ: {value}", English: "Searching YouTube for {value}"},
			Action:   Action{Kind: ActionOpenSearch, Search: Search{Engine: EngineYouTube, Default: "trending"}},
		},
		Rule{
			Name:     "wikipedia",
			Category: CategorySearch,
			Triggers: []string{"wikipedia", "vikipedia", "विकिपीडिया"},
			Reply:    Reply{Hindi: "विकिपीडिया पर खोज रही हूँ: {value}", English: "Searching Wikipedia for {value}"},
			Action: Action{Kind: ActionOpenSearch, Search: Search{
				Engine:        EngineWikipedia,
				Fillers:       []string{"on"},
				Default:       "Main_Page",
				SpokenDefault: "home",
			}},
		},
		Rule{
			Name:     "search",
			Category: CategorySearch,
			Triggers: []string{"search", "find", "ढूँढो", "dhundo", "खोजो"},
			Reply:    Reply{Hindi: "गूगल पर खोज रही हूँ: {value}", English: "Searching Google for {value}"},
			Action: Action{
				Kind:   ActionOpenSearch,
				Search: Search{Engine: EngineGoogle, Fillers: []string{"for", "ke liye"}, Default: "news"},
				Delay:  SearchDelay,
			},
		},
		Rule{
			Name:     "translate",
			Category: CategorySearch,
			Triggers: []string{"translate", "अनुवाद", "translate to hindi", "translate to english"},
			Reply:    Reply{Hindi: "गूगल ट्रांसलेट खोल रही हूँ...", English: "Opening Google Translate..."},
			Action:   Action{Kind: ActionOpenSearch, Search: Search{Engine: EngineTranslate}},
		},
	)
	return rules
}

// DefaultFallback searches the whole transcript on Google after a delay.
func DefaultFallback() Rule {
	return Rule{
		Name:     FallbackName,
		Category: CategorySearch,
		Reply: Reply{
			Hindi:   "इंटरनेट पर आपके प्रश्न के बारे में यह मिला, खोल रही हूँ…",
			English: "This is what I found on the internet, opening results…",
		},
		Action: Action{
			Kind:   ActionOpenSearch,
			Search: Search{Engine: EngineGoogle},
			Delay:  FallbackDelay,
		},
	}
}

// DefaultCatalog builds the catalog from DefaultRules and DefaultFallback.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultRules(), DefaultFallback())
	if err != nil {
		panic("intent: default catalog invalid: " + err.Error())
	}
	return c
}

func site(name, url, hindiName, englishName string, triggers ...string) Rule {
	return Rule{
		Name:     name,
		Category: CategorySite,
		Triggers: triggers,
		Reply: Reply{
			Hindi:   hindiName + " खोल रही हूँ...",
			English: "Opening " + englishName + "...",
		},
		Action: Action{Kind: ActionOpenURL, URL: url},
	}
}
