package types

// Signal is a situational flag consulted by the common-sense fallback rules.
type Signal string

// Signal constants
const (
	SignalStruggling        Signal = "struggling"
	SignalHelpSeeking       Signal = "help_seeking"
	SignalSafety            Signal = "safety"
	SignalComplexityWarning Signal = "complexity_warning"
	SignalDiscovery         Signal = "discovery"
	SignalBuildOn           Signal = "build_on"
	SignalApplyTo           Signal = "apply_to"
)

// Context is the learner state read by the coordinate engine and the
// question selector. Optional numeric fields are pointers: nil means absent.
type Context struct {
	LearnerID       string   `json:"learner_id,omitempty"`
	CurrentTopic    string   `json:"current_topic,omitempty"`
	LearningHistory []string `json:"learning_history,omitempty"`

	LearnerLevel       *float64 `json:"learner_level,omitempty"`
	CurrentPerformance *float64 `json:"current_performance,omitempty"`
	TopicComplexity    *float64 `json:"topic_complexity,omitempty"`

	// SemanticSimilarity and PrincipleOverlap optionally score the current
	// topic against a history topic, keyed by that history topic.
	SemanticSimilarity map[string]float64 `json:"semantic_similarity,omitempty"`
	PrincipleOverlap   map[string]float64 `json:"principle_overlap,omitempty"`

	Triggers         []string `json:"triggers,omitempty"`
	SessionStart     bool     `json:"session_start,omitempty"`
	LearningComplete bool     `json:"learning_complete,omitempty"`
	AllowReview      *bool    `json:"allow_review,omitempty"`

	Signals      []Signal `json:"signals,omitempty"`
	LastResponse string   `json:"last_response,omitempty"`
}

// ReviewAllowed reports whether REVIEW may be chosen. Absence means true.
func (c Context) ReviewAllowed() bool {
	return c.AllowReview == nil || *c.AllowReview
}

// HasSignal reports whether s is present.
func (c Context) HasSignal(s Signal) bool {
	for _, v := range c.Signals {
		if v == s {
			return true
		}
	}
	return false
}

// Clone returns a deep copy suitable for snapshots.
func (c Context) Clone() Context {
	out := c
	out.LearningHistory = append([]string(nil), c.LearningHistory...)
	out.Triggers = append([]string(nil), c.Triggers...)
	out.Signals = append([]Signal(nil), c.Signals...)
	out.LearnerLevel = cloneFloat(c.LearnerLevel)
	out.CurrentPerformance = cloneFloat(c.CurrentPerformance)
	out.TopicComplexity = cloneFloat(c.TopicComplexity)
	if c.AllowReview != nil {
		v := *c.AllowReview
		out.AllowReview = &v
	}
	out.SemanticSimilarity = cloneScores(c.SemanticSimilarity)
	out.PrincipleOverlap = cloneScores(c.PrincipleOverlap)
	return out
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneScores(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
