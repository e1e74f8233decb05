// Package detect turns a customer message plus external signals into an
// ordered set of conversation events. Detection is keyword based; false
// negatives are acceptable, and a false ESCALATION_REQUESTED only costs an
// extra handoff.
package detect

import (
	"strings"

	contractx "github.com/haneiva1/autoventas/engine/contract"
	statex "github.com/haneiva1/autoventas/engine/state"
)

// Signals are facts the ingestion layer already knows about the message.
type Signals struct {
	HasAttachment   bool
	PaymentApproved bool
	PaymentRejected bool
	SessionExpired  bool
}

var (
	escalationKeywords = []string{
		"agente", "humano", "persona real", "asesor", "hablar con alguien",
		"queja", "reclamo", "human", "agent", "speak to someone",
	}
	paymentProofKeywords = []string{
		"comprobante", "transferencia", "ya pague", "ya pagué", "deposito",
		"depósito", "recibo", "voucher", "payment proof", "receipt",
	}
	cancelKeywords = []string{
		"cancelar", "cancela mi pedido", "ya no quiero", "anular", "cancel",
	}
	greetingKeywords = []string{
		"hola", "buenos dias", "buenos días", "buenas tardes",
		"buenas noches", "que tal", "qué tal", "hello", "hi", "hey",
	}
)

// Detect is pure and total. If a human already took the conversation over,
// nothing is surfaced. Text-derived events come first, highest priority
// first; signal-derived events follow in a fixed order.
func Detect(message string, st *statex.ConversationState, sig Signals) []contractx.Event {
	if st != nil && st.HumanOverride {
		return nil
	}

	var events []contractx.Event
	lower := strings.ToLower(strings.TrimSpace(message))

	switch {
	case containsAny(lower, escalationKeywords):
		events = append(events, contractx.EventEscalationRequested)
	case sig.HasAttachment || containsAny(lower, paymentProofKeywords):
		events = append(events, contractx.EventPaymentProofReceived)
	case containsAny(lower, cancelKeywords):
		events = append(events, contractx.EventOrderCancelled)
	case containsAny(lower, greetingKeywords):
		events = append(events, contractx.EventGreetingReceived)
	}

	if sig.PaymentApproved {
		events = append(events, contractx.EventPaymentApproved)
	}
	if sig.PaymentRejected {
		events = append(events, contractx.EventPaymentRejected)
	}
	if sig.SessionExpired {
		events = append(events, contractx.EventSessionTimeout)
	}
	return events
}

func containsAny(haystack string, needles []string) bool {
	if haystack == "" {
		return false
	}
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
