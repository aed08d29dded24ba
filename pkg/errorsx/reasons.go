package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	ReasonSTTConnect     ReasonCode = "stt_connect"
	ReasonSTTSend        ReasonCode = "stt_send"
	ReasonSTTCircuitOpen ReasonCode = "stt_circuit_open"

	ReasonSpeechSpeak  ReasonCode = "speech_speak"
	ReasonSpeechCancel ReasonCode = "speech_cancel"

	ReasonNavigateOpen          ReasonCode = "navigate_open"
	ReasonCapabilityUnavailable ReasonCode = "capability_unavailable"

	ReasonDispatchBusy   ReasonCode = "dispatch_busy"
	ReasonCatalogInvalid ReasonCode = "catalog_invalid"

	ReasonSMSSend        ReasonCode = "sms_send"
	ReasonSMSRateLimit   ReasonCode = "sms_rate_limit"
	ReasonSMSCircuitOpen ReasonCode = "sms_circuit_open"

	ReasonTransportSend ReasonCode = "transport_send"
)
