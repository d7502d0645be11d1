// Package router implements the stateless routing agent: given the text
// of an inbound message and the caller's host context, it classifies
// intent, selects a processing-tier hint and a downstream handler, and
// produces a reply. Route is a pure function - same input, same output -
// so recomputing a decision after an at-least-once redelivery is always
// safe.
package router

// Intent is the closed-set classification of a message's purpose.
type Intent string

const (
	IntentSales             Intent = "sales/presales"
	IntentSupport           Intent = "support"
	IntentBilling           Intent = "billing"
	IntentLeadQualification Intent = "lead-qualification"
	IntentScheduling        Intent = "scheduling"
	IntentOther             Intent = "other"
)

// PersonaMode identifies the kind of session the message arrived from.
type PersonaMode string

const (
	// PersonaGuest is an unauthenticated session.
	PersonaGuest PersonaMode = "guest"

	// PersonaRegular is an identified user session.
	PersonaRegular PersonaMode = "regular"
)

// ModelTier is a processing-tier label, not a concrete model backend.
type ModelTier string

const (
	// TierStandard is the cheapest processing tier.
	TierStandard ModelTier = "standard"

	// TierAdvanced is the elevated processing tier for identified users.
	TierAdvanced ModelTier = "advanced"
)

// Agent names the downstream handler a message is routed to.
type Agent string

const (
	// AgentSelf is the terminal handler: reply in place, route nowhere.
	AgentSelf Agent = "self"

	AgentAnalysis  Agent = "analysis"
	AgentSupport   Agent = "support"
	AgentBilling   Agent = "billing"
	AgentScheduler Agent = "scheduler"
)

// HostContext carries what the router needs to know about the caller:
// the session persona and the daily quota position. The full identity
// record stays with external collaborators.
type HostContext struct {
	PersonaMode PersonaMode
	UsedToday   int
	DailyLimit  int
}

// QuotaExhausted reports whether the caller's daily quota is spent.
func (h HostContext) QuotaExhausted() bool {
	return h.UsedToday >= h.DailyLimit
}

// Decision is the router's output. It is computed per inbound message
// and never persisted by this core.
type Decision struct {
	Intent      Intent
	PersonaMode PersonaMode
	ModelHint   ModelTier
	NextAgent   Agent
	Reply       string
	FollowUp    []string
}

// quotaReply is the fixed, friendly rejection for a quota-exhausted
// caller. Never a raw error.
const quotaReply = "Você atingiu o limite de mensagens de hoje. Volte amanhã que a gente continua! 😊"

// genericReply is used when no intent pattern matches.
const genericReply = "Entendi! Pode me contar um pouco mais sobre o que você precisa?"

// Route classifies an inbound message and selects its downstream
// handling. It never fails: unrecognized text maps to IntentOther with a
// generic reply.
//
// The admission check runs first and is cheap: a quota-exhausted caller
// gets the fixed rejection with NextAgent=self, and intent detection is
// skipped entirely.
func Route(text string, host HostContext) Decision {
	if host.QuotaExhausted() {
		return Decision{
			Intent:      IntentOther,
			PersonaMode: host.PersonaMode,
			ModelHint:   tierFor(host.PersonaMode),
			NextAgent:   AgentSelf,
			Reply:       quotaReply,
		}
	}

	intent := DetectIntent(text)
	return Decision{
		Intent:      intent,
		PersonaMode: host.PersonaMode,
		ModelHint:   tierFor(host.PersonaMode),
		NextAgent:   agentFor(intent),
		Reply:       replyFor(intent),
		FollowUp:    followUpFor(intent),
	}
}

// tierFor selects the processing tier from the persona alone,
// independent of intent: guest sessions get the cheapest tier,
// identified users the elevated one.
func tierFor(persona PersonaMode) ModelTier {
	if persona == PersonaGuest {
		return TierStandard
	}
	return TierAdvanced
}

// agentFor maps an intent to its downstream handler, defaulting to self.
func agentFor(intent Intent) Agent {
	switch intent {
	case IntentSales, IntentLeadQualification:
		return AgentAnalysis
	case IntentSupport:
		return AgentSupport
	case IntentBilling:
		return AgentBilling
	case IntentScheduling:
		return AgentScheduler
	default:
		return AgentSelf
	}
}
