package tracking

// Report lifecycle statuses, in the order a report normally moves through
// them. Values are the ones the dashboard frontend already uses.
const (
	StatusNotified     = "notificado"
	StatusFiled        = "radicado"
	StatusInManagement = "en-gestion"
	StatusAssigned     = "asignado"
	StatusInProgress   = "en-proceso"
	StatusResolved     = "resuelto"
	StatusClosed       = "cerrado"
)

var Statuses = []string{
	StatusNotified,
	StatusFiled,
	StatusInManagement,
	StatusAssigned,
	StatusInProgress,
	StatusResolved,
	StatusClosed,
}

// allowedTransitions restricts how a report may move between statuses.
// Closed is terminal.
var allowedTransitions = map[string][]string{
	StatusNotified:     {StatusFiled, StatusClosed},
	StatusFiled:        {StatusInManagement, StatusAssigned, StatusClosed},
	StatusInManagement: {StatusAssigned, StatusInProgress, StatusClosed},
	StatusAssigned:     {StatusInProgress, StatusClosed},
	StatusInProgress:   {StatusResolved, StatusClosed},
	StatusResolved:     {StatusClosed},
	StatusClosed:       {},
}

// CanTransition reports whether moving a report from one status to another
// is allowed.
func CanTransition(from, to string) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidStatus reports whether s is a known lifecycle status.
func ValidStatus(s string) bool {
	_, ok := allowedTransitions[s]
	return ok
}

// Priorities
const (
	PriorityLow    = "baja"
	PriorityMedium = "media"
	PriorityHigh   = "alta"
	PriorityUrgent = "urgente"
)

var Priorities = []string{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

func ValidPriority(p string) bool {
	for _, v := range Priorities {
		if v == p {
			return true
		}
	}
	return false
}

// Evidence kinds
const (
	EvidencePhoto    = "foto"
	EvidenceDocument = "documento"
)

func validEvidenceKind(k string) bool {
	return k == EvidencePhoto || k == EvidenceDocument
}

// checkProgressForStatus enforces the coherence rules between a status and
// its progress percentage: resolved needs at least 90, closed exactly 100.
func checkProgressForStatus(status string, progress int) bool {
	if status == StatusResolved && progress < 90 {
		return false
	}
	if status == StatusClosed && progress != 100 {
		return false
	}
	return true
}
