// Package domain holds communication log enums.
package domain

// Channel is the medium a contact event happened over.
type Channel string

const (
	ChannelPhone    Channel = "PHONE"
	ChannelEmail    Channel = "EMAIL"
	ChannelSMS      Channel = "SMS"
	ChannelWhatsApp Channel = "WHATSAPP"
	ChannelInPerson Channel = "IN_PERSON"
)

// KnownChannels lists every contact medium, in display order.
var KnownChannels = []Channel{
	ChannelPhone,
	ChannelEmail,
	ChannelSMS,
	ChannelWhatsApp,
	ChannelInPerson,
}

// Direction distinguishes staff-initiated contact from patient-initiated.
type Direction string

const (
	DirectionInbound  Direction = "INBOUND"
	DirectionOutbound Direction = "OUTBOUND"
)

// Status is the recorded outcome of a contact attempt.
type Status string

const (
	StatusCompleted Status = "COMPLETED"
	StatusMissed    Status = "MISSED"
	StatusNoAnswer  Status = "NO_ANSWER"
	StatusFailed    Status = "FAILED"
)
