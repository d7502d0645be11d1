package router

import "strings"

// intentPattern couples an intent with the keywords that indicate it.
// Patterns are evaluated in declaration order and the first match wins;
// there is no scoring or ranking across multiple matches.
type intentPattern struct {
	intent   Intent
	keywords []string
}

// Ordered by priority. Portuguese and English keywords, matched against
// the lowercased message text.
var intentPatterns = []intentPattern{
	{IntentSales, []string{
		"orçamento", "orcamento", "preço", "preco", "quanto custa",
		"comprar", "proposta", "quote", "pricing", "price", "buy",
	}},
	{IntentBilling, []string{
		"fatura", "boleto", "cobrança", "cobranca", "pagamento",
		"reembolso", "invoice", "payment", "refund", "charge",
	}},
	{IntentSupport, []string{
		"ajuda", "suporte", "problema", "erro", "não funciona",
		"nao funciona", "help", "support", "issue", "broken",
	}},
	{IntentScheduling, []string{
		"agendar", "marcar", "horário", "horario", "reunião", "reuniao",
		"schedule", "appointment", "meeting", "book a",
	}},
	{IntentLeadQualification, []string{
		"interesse", "interessado", "demonstração", "demonstracao",
		"demo", "trial", "teste grátis", "teste gratis", "interested",
	}},
}

// DetectIntent classifies message text into the closed intent set via
// ordered keyword matching over the lowercased text. Text matching no
// pattern maps to IntentOther, never to an error.
func DetectIntent(text string) Intent {
	lowered := strings.ToLower(text)
	for _, p := range intentPatterns {
		for _, kw := range p.keywords {
			if strings.Contains(lowered, kw) {
				return p.intent
			}
		}
	}
	return IntentOther
}

// replyFor returns the canned acknowledgement for an intent.
func replyFor(intent Intent) string {
	switch intent {
	case IntentSales:
		return "Que ótimo! Vou te passar para o nosso time comercial preparar um orçamento."
	case IntentBilling:
		return "Certo, vou verificar sua cobrança com o financeiro."
	case IntentSupport:
		return "Sinto muito pelo transtorno! Vou acionar o suporte para te ajudar."
	case IntentScheduling:
		return "Claro! Vamos encontrar um horário que funcione para você."
	case IntentLeadQualification:
		return "Legal! Me conta um pouco mais para eu entender como podemos ajudar."
	default:
		return genericReply
	}
}

// followUpFor returns suggested next utterances for an intent.
func followUpFor(intent Intent) []string {
	switch intent {
	case IntentSales:
		return []string{"Quais planos vocês oferecem?", "Tem desconto anual?"}
	case IntentBilling:
		return []string{"Segunda via do boleto", "Alterar forma de pagamento"}
	case IntentSupport:
		return []string{"Falar com um atendente", "Ver status do sistema"}
	case IntentScheduling:
		return []string{"Amanhã de manhã", "Semana que vem"}
	case IntentLeadQualification:
		return []string{"Quero uma demonstração", "Enviar meu contato"}
	default:
		return nil
	}
}
