package eval

// Summary aggregates the outcomes of one method.
type Summary struct {
	Method Method `json:"method" yaml:"method"`
	Passed int    `json:"passed" yaml:"passed"`
	Failed int    `json:"failed" yaml:"failed"`
	// Errors counts failed outcomes caused by a provider error rather than a wrong answer
	Errors   int     `json:"errors" yaml:"errors"`
	Accuracy float64 `json:"accuracy" yaml:"accuracy"`
}

func (s Summary) Total() int {
	return s.Passed + s.Failed
}

type Report struct {
	Name     string    `json:"name,omitempty" yaml:"name,omitempty"`
	Methods  []Method  `json:"methods" yaml:"methods"`
	Outcomes []Outcome `json:"outcomes" yaml:"outcomes"`
}

// Summaries returns one summary per method, in the order the methods ran.
func (r *Report) Summaries() []Summary {
	byMethod := map[Method]*Summary{}
	var ret []*Summary
	for _, m := range r.Methods {
		s := &Summary{Method: m}
		byMethod[m] = s
		ret = append(ret, s)
	}

	for _, o := range r.Outcomes {
		s, ok := byMethod[o.Method]
		if !ok {
			continue
		}
		if o.Correct {
			s.Passed++
		} else {
			s.Failed++
		}
		if o.Error != "" {
			s.Errors++
		}
	}

	summaries := make([]Summary, 0, len(ret))
	for _, s := range ret {
		if s.Total() > 0 {
			s.Accuracy = float64(s.Passed) / float64(s.Total()) * 100
		}
		summaries = append(summaries, *s)
	}
	return summaries
}

// Failures returns the outcomes that were not scored correct.
func (r *Report) Failures() []Outcome {
	var ret []Outcome
	for _, o := range r.Outcomes {
		if !o.Correct {
			ret = append(ret, o)
		}
	}
	return ret
}
