package domain

type PostCondition struct {
	Description string `json:"description"`
	Satisfied   bool   `json:"satisfied"`
	Details     string `json:"details"`
}

// Result is what every mutating operation returns. Business-rule failures
// are reported here instead of as Go errors.
type Result struct {
	Success        bool             `json:"success"`
	Kind           ErrorKind        `json:"kind,omitempty"`
	Message        string           `json:"message"`
	PostConditions []PostCondition  `json:"post_conditions"`
	Record         *OperationRecord `json:"-"`
}

func Failure(err error) Result {
	return Result{
		Success:        false,
		Kind:           KindOf(err),
		Message:        err.Error(),
		PostConditions: []PostCondition{},
	}
}

func (r Result) AllSatisfied() bool {
	for _, pc := range r.PostConditions {
		if !pc.Satisfied {
			return false
		}
	}
	return true
}
