// Package document defines the flat record indexed by the examples and a
// generator producing random records for bulk submissions.
package document

import (
	"time"

	"github.com/google/uuid"

	"github.com/mgargadennec/elasticsearch-13a14/datafactory"
)

// Source field names.
const (
	FieldID        = "id"
	FieldTitre     = "titre"
	FieldSousTitre = "sousTitre"
	FieldYear      = "year"
	FieldCategory  = "category"
	FieldCreatedAt = "createdAt"
)

// Values of the hand-written first document.
const (
	SeedTitre     = "Ma première indexation est un succès!"
	SeedSousTitre = "En espérant qu'aucune erreur ne vienne poser problème :'( "
	SeedYear      = 2015
	SeedCategory  = "Personnalisé"
)

// Document is a single generated record. Zero-valued fields are omitted
// from its source.
type Document struct {
	ID        string
	Titre     string
	SousTitre string
	Year      int
	Category  string
	CreatedAt time.Time
}

// Source returns the document as an indexable field map.
func (d Document) Source() map[string]any {
	src := make(map[string]any, 6)
	if d.ID != "" {
		src[FieldID] = d.ID
	}
	if d.Titre != "" {
		src[FieldTitre] = d.Titre
	}
	if d.SousTitre != "" {
		src[FieldSousTitre] = d.SousTitre
	}
	if d.Year != 0 {
		src[FieldYear] = d.Year
	}
	if d.Category != "" {
		src[FieldCategory] = d.Category
	}
	if !d.CreatedAt.IsZero() {
		src[FieldCreatedAt] = d.CreatedAt
	}
	return src
}

// Profile selects which fields a Generator fills besides the title.
type Profile struct {
	ID        bool
	SousTitre bool
	Year      bool
	Category  bool
	CreatedAt bool
}

// Predefined profiles.
var (
	// TitleOnly documents carry a random title and nothing else.
	TitleOnly = Profile{}
	// Rich documents carry every field except the category.
	Rich = Profile{ID: true, SousTitre: true, Year: true, CreatedAt: true}
	// Categorized documents carry every field.
	Categorized = Profile{ID: true, SousTitre: true, Year: true, Category: true, CreatedAt: true}
)

// Options configures a Generator.
type Options struct {
	// Factory supplies random values. Default: datafactory.New().
	Factory *datafactory.Factory
	// Profile selects the generated fields.
	Profile Profile
	// MinTextLength is the minimum title length. Default: 70.
	MinTextLength int
	// YearMin and YearMax bound the year field. Default: 1950..2015.
	YearMin int
	YearMax int
	// CreatedAtYears is how many years back createdAt may go. Default: 3.
	CreatedAtYears int
	// Now returns the current time. Default: time.Now.
	Now func() time.Time
	// NewID returns record identifiers. Default: uuid.NewString.
	NewID func() string
}

// Generator produces random documents.
type Generator struct {
	opts Options
}

// NewGenerator creates a Generator, applying defaults for unset options.
func NewGenerator(opts Options) *Generator {
	if opts.Factory == nil {
		opts.Factory = datafactory.New()
	}
	if opts.MinTextLength <= 0 {
		opts.MinTextLength = 70
	}
	if opts.YearMin == 0 && opts.YearMax == 0 {
		opts.YearMin, opts.YearMax = 1950, 2015
	}
	if opts.CreatedAtYears <= 0 {
		opts.CreatedAtYears = 3
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Generator{opts: opts}
}

// Generate returns one random document.
func (g *Generator) Generate() Document {
	f := g.opts.Factory
	p := g.opts.Profile

	text := f.Text(g.opts.MinTextLength)
	doc := Document{Titre: text}
	if p.ID {
		doc.ID = g.opts.NewID()
	}
	if p.SousTitre {
		doc.SousTitre = text
	}
	if p.Year {
		doc.Year = f.NumberBetween(g.opts.YearMin, g.opts.YearMax)
	}
	if p.Category {
		doc.Category = f.BusinessName()
	}
	if p.CreatedAt {
		now := g.opts.Now()
		doc.CreatedAt = f.DateBetween(now.AddDate(-g.opts.CreatedAtYears, 0, 0), now)
	}
	return doc
}

// GenerateN returns n random documents.
func (g *Generator) GenerateN(n int) []Document {
	docs := make([]Document, 0, max(n, 0))
	for range n {
		docs = append(docs, g.Generate())
	}
	return docs
}

// Seed returns the fixed first document, with the profile's optional
// fields set to their well-known values.
func (g *Generator) Seed() Document {
	p := g.opts.Profile
	doc := Document{Titre: SeedTitre, SousTitre: SeedSousTitre}
	if p.ID {
		doc.ID = g.opts.NewID()
	}
	if p.Year {
		doc.Year = SeedYear
	}
	if p.Category {
		doc.Category = SeedCategory
	}
	if p.CreatedAt {
		doc.CreatedAt = g.opts.Now()
	}
	return doc
}
