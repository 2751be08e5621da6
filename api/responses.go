package api

// DecisionResponse is the result of a single evaluation.
type DecisionResponse struct {
	ID         string `json:"id" description:"Decision ID"`
	Ability    string `json:"ability" description:"Ability as requested"`
	Policy     string `json:"policy" description:"Resolved policy name"`
	Action     string `json:"action" description:"Resolved action name"`
	Passed     bool   `json:"passed" description:"Whether the actor is authorized"`
	Complete   bool   `json:"complete" description:"Whether a check finalized the decision"`
	Message    string `json:"message" description:"Message key for localization"`
	Params     []any  `json:"params,omitempty" description:"Message parameters"`
	Error      string `json:"error,omitempty" description:"Evaluation error, batch only"`
	EvalTimeNs int64  `json:"eval_time_ns" description:"Evaluation time in nanoseconds"`
}

// BatchAllowsResponse contains results for multiple evaluations.
type BatchAllowsResponse struct {
	Results []DecisionResponse `json:"results" description:"Decisions in request order"`
}

// PoliciesResponse lists registered policies.
type PoliciesResponse struct {
	Policies []string `json:"policies" description:"Policy names in registration order"`
}

// ListResponse wraps a list of items with pagination metadata.
type ListResponse[T any] struct {
	Items  []T   `json:"items" description:"List of items"`
	Total  int64 `json:"total" description:"Total count"`
	Limit  int   `json:"limit" description:"Page size"`
	Offset int   `json:"offset" description:"Page offset"`
}
