package domain

// IntentLabel selects the response strategy for one message.
// Severity order is CRISIS > RETRIEVE > CHITCHAT.
type IntentLabel int

const (
	IntentChitchat IntentLabel = 0
	IntentRetrieve IntentLabel = 1
	IntentCrisis   IntentLabel = 2
)

func (l IntentLabel) String() string {
	switch l {
	case IntentChitchat:
		return "chitchat"
	case IntentRetrieve:
		return "retrieve"
	case IntentCrisis:
		return "crisis"
	default:
		return "unknown"
	}
}

func (l IntentLabel) Valid() bool {
	return l >= IntentChitchat && l <= IntentCrisis
}

// MoreCautious returns whichever label has the higher severity.
func MoreCautious(a, b IntentLabel) IntentLabel {
	if b > a {
		return b
	}
	return a
}

// IntentSource records which path produced a label.
type IntentSource string

const (
	IntentSourceModel         IntentSource = "model"
	IntentSourceHeuristic     IntentSource = "heuristic"
	IntentSourceSafetyKeyword IntentSource = "safety_keyword"
)

type Classification struct {
	Label  IntentLabel
	Source IntentSource
}
