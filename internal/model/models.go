// Package model defines the entities stored in a slide library.
package model

// ConvertStatus tracks a file through the conversion pipeline.
type ConvertStatus string

const (
	StatusPending    ConvertStatus = "pending"
	StatusInProgress ConvertStatus = "in_progress"
	StatusCompleted  ConvertStatus = "completed"
	StatusFailed     ConvertStatus = "failed"
)

// KeywordCategory classifies a keyword label.
type KeywordCategory string

const (
	CategoryTopic KeywordCategory = "topic"
	CategoryTitle KeywordCategory = "title"
	CategoryName  KeywordCategory = "name"
)

// TargetKind says what a keyword is attached to.
type TargetKind string

const (
	TargetSlide   TargetKind = "slide"
	TargetElement TargetKind = "element"
)

// Project is the root container for files, keywords, and assemblies.
type Project struct {
	ID        string
	Name      string
	RootPath  string
	CreatedAt int64
}

// File is one imported presentation document.
// Its slides are only trustworthy when Status is StatusCompleted.
type File struct {
	ID           string
	ProjectID    string
	OriginalPath string
	StoragePath  string // relative to the project root
	Digest       string // blake3 of the imported content
	SlideCount   int
	Status       ConvertStatus
	ErrorMsg     string
	ImportedAt   int64
}

// Slide is one slide within a file. (FileID, Index) is unique; Index is 1-based.
type Slide struct {
	ID        string
	FileID    string
	Index     int
	Title     string
	Body      string
	Notes     string
	ImagePath string // relative to the project root
	ThumbPath string // relative to the project root
	AITopic   *string
	AIType    *string
	AIInsight *string
}

// Element is one shape on a slide. The bounding box is in the document's
// native unit. Elements are replaced wholesale when a slide is reconverted.
type Element struct {
	ID      string
	SlideID string
	Kind    string
	X       float64
	Y       float64
	W       float64
	H       float64
	Text    string
}

// Keyword is a categorized label. (ProjectID, Text) is unique.
type Keyword struct {
	ID        string
	ProjectID string
	Text      string
	Category  KeywordCategory
	Color     string
	CreatedAt int64
}

// SlideKeyword associates a keyword with a slide.
type SlideKeyword struct {
	SlideID   string
	KeywordID string
}

// ElementKeyword associates a keyword with an element.
type ElementKeyword struct {
	ElementID string
	KeywordID string
}

// Assembly is a named, ordered list of slide references within a project.
type Assembly struct {
	ID        string
	ProjectID string
	Name      string
	CreatedAt int64
}

// AssemblySlide is one entry in an assembly's ordering. Position is 0-based.
type AssemblySlide struct {
	AssemblyID string
	SlideID    string
	Position   int
}
