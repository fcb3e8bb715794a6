// Package domain implements message template rendering.
package domain

import "strings"

// Channel is the delivery medium a template is written for.
type Channel string

const (
	ChannelEmail    Channel = "EMAIL"
	ChannelSMS      Channel = "SMS"
	ChannelWhatsApp Channel = "WHATSAPP"
)

// Render substitutes {{name}} placeholders in text. Only placeholders
// declared in variables are substituted: a declared variable with no value
// renders empty, an undeclared placeholder is left intact so typos surface
// in preview instead of silently disappearing.
func Render(text string, variables []string, values map[string]string) string {
	if len(variables) == 0 {
		return text
	}
	pairs := make([]string, 0, len(variables)*2)
	for _, name := range variables {
		pairs = append(pairs, "{{"+name+"}}", values[name])
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
