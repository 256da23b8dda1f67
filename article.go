package bizharvest

// Field is the result of looking up a single piece of article metadata in a
// document. Found distinguishes an element that was missing entirely from
// one that was present but empty.
type Field struct {
	Value string
	Found bool
}

// Present returns a Field carrying the given value.
func Present(value string) Field {
	return Field{Value: value, Found: true}
}

// Absent is the zero Field: no element matched any lookup rule.
var Absent = Field{}

// RawArticle holds extracted article data before normalization. All fields
// are verbatim document text; dates have not been parsed and whitespace has
// not been collapsed.
type RawArticle struct {
	URL      string
	Title    Field
	Author   Field
	DateText Field
	Content  Field
}

// Article is the stored record shape for one scraped business article.
// ID is assigned by the store on insertion and is zero before that.
// PublishedAt is an ISO-8601 timestamp string, or nil when the source date
// was absent or unparseable. Title and Author fall back to sentinel values
// rather than empty strings; Content may be empty but never reports null.
type Article struct {
	ID          int64
	Title       string
	Author      string
	PublishedAt *string
	URL         string
	Content     string
}

// Sentinel values substituted for unrecoverable fields.
const (
	UntitledSentinel = "Untitled"
	UnknownAuthor    = "Unknown"
)
