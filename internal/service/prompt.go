package service

import (
	"fmt"

	"intake/internal/model"
)

const extractionPromptBase = `You extract structured real-estate data for a brokerage in Egypt from WhatsApp or website messages.

Respond ONLY with a JSON object of the form {"data": {...}}. Omit any field the message does not mention; never invent values.

Fields:
- type: "rent" or "sell" for a listing, "rent" or "buy" for a client request
- budget: {"price": number, "currency": "EGP" | "USD", "transaction": "monthly" | "yearly" | "cash" | "installment"}
- furnish_type: "furnished" or "unfurnished"
- deal_type: "side-by-side" or "50:50"
- no_bedroom, no_bathroom, no_master_bedroom: integers
- bua: built-up area in square meters (number)
- duration: number of months or years, duration_type: "Months" or "Years"
- start_date, end_date: YYYY-MM-DD
- reference_id: listing or unit reference if quoted
- options: array of extra features (e.g. "garden", "pool", "elevator")
- urgent, direct: booleans
- whatsapp_message: the original message text
- client: {"name": string, "phone": string, "email": string}

Rules:
- Prices: "2M" = 2000000, "850K" = 850000, "25 alf" = 25000
- Keep place names exactly as written, including commas (e.g. "New Cairo, Cairo")
`

const inventoryPromptFields = `- property_type: a single property type name (e.g. "Villa", "Apartment")
- location: a single place name
- tag: a single tag name if the message implies one (e.g. "Hot Deal")
`

const requestPromptFields = `- property_types_required: array of property type names the client accepts
- locations: array of place names the client accepts
- tag: array of tag names if the message implies any
`

// extractionPrompt returns the system prompt for a form kind
func extractionPrompt(kind model.FormKind) string {
	fields := inventoryPromptFields
	if kind == model.KindRequest {
		fields = requestPromptFields
	}
	return fmt.Sprintf("%s%s\nThe message describes a %s.", extractionPromptBase, fields, kind.Identity())
}
