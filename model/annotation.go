package model

// MarkStyle is the decoration applied to a marked span
type MarkStyle int

const (
	Weak MarkStyle = iota
	Strong
)

func (s MarkStyle) String() string {
	if s == Strong {
		return "strong"
	}
	return "weak"
}

// Wrap decorates text: Strong as "@text", Weak as "**text**"
func (s MarkStyle) Wrap(text string) string {
	if s == Strong {
		return "@" + text
	}
	return "**" + text + "**"
}

// Overhead is the number of bytes Wrap adds
func (s MarkStyle) Overhead() int {
	if s == Strong {
		return 1
	}
	return 4
}

// Marker is a span of the source text to decorate
type Marker struct {
	Span
	Style MarkStyle
	Label string
}

// AnnotationMetadata summarises the matches of one request
type AnnotationMetadata struct {
	Exact    int      `json:"exact"`
	Partial  int      `json:"partial"`
	None     int      `json:"none"`
	Warnings []string `json:"warnings"`
}

// AnnotationResult is the output of inline annotation
type AnnotationResult struct {
	EnrichedText string             `json:"enriched_text"`
	Explanation  string             `json:"explanation"`
	Metadata     AnnotationMetadata `json:"metadata"`
}

// PositionAnnotation locates one matched entity in the source text
type PositionAnnotation struct {
	ID     string     `json:"id"`
	Entity string     `json:"entity"`
	Type   EntityKind `json:"type"`
	Start  int        `json:"start"`
	End    int        `json:"end"`
	Match  MatchType  `json:"match"`
	DBData any        `json:"db_data"`
}

// PositionResult is the output of position annotation
type PositionResult struct {
	OriginalText string               `json:"original_text"`
	Annotations  []PositionAnnotation `json:"annotations"`
}
