package checkout

type Status string

const (
	StatusIdle            Status = "IDLE"
	StatusFormPresented   Status = "FORM_PRESENTED"
	StatusValidating      Status = "VALIDATING"
	StatusDebiting        Status = "DEBITING"
	StatusCommittingStock Status = "COMMITTING_STOCK"
	StatusConfirmed       Status = "CONFIRMED"
)

// Every validation, debit, and commit step may fall back to FORM_PRESENTED:
// all failures there are user-recoverable by resubmitting.
var validNext = map[Status]map[Status]bool{
	StatusIdle:            {StatusFormPresented: true},
	StatusFormPresented:   {StatusValidating: true},
	StatusValidating:      {StatusDebiting: true, StatusFormPresented: true},
	StatusDebiting:        {StatusCommittingStock: true, StatusFormPresented: true},
	StatusCommittingStock: {StatusConfirmed: true, StatusFormPresented: true},
	StatusConfirmed:       {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}
