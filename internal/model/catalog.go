package model

import "time"

// Provider represents a content provider, the top level of the
// Provider → Series → Course hierarchy (`providers` table). Each
// provider optionally references one cover image.
type Provider struct {
	ID          uint64    // providers.id
	Name        string    // providers.name
	Description string    // providers.description
	ImageID     *uint64   // providers.image_id (nullable)
	CreatedAt   time.Time // providers.created_at
	UpdatedAt   time.Time // providers.updated_at
}

// Category is a row in the `categories` table. Series reference a
// category by id; the category is looked up or created by name when a
// series is written (explicit two-step, no hidden upsert cascade).
type Category struct {
	ID   uint64 // categories.id
	Name string // categories.name
}

// Series groups courses under a provider (`series` table).
//
// Fields:
//  ID          – primary key identifier.
//  Name        – series title.
//  Description – free-form description.
//  ProviderID  – owning provider (providers.id).
//  CategoryID  – category foreign key (categories.id).
//  ImageID     – optional cover image, nil when unset.
type Series struct {
	ID          uint64    // series.id
	Name        string    // series.name
	Description string    // series.description
	ProviderID  uint64    // series.provider_id
	CategoryID  uint64    // series.category_id
	ImageID     *uint64   // series.image_id (nullable)
	CreatedAt   time.Time // series.created_at
	UpdatedAt   time.Time // series.updated_at
}

// Course is the leaf of the hierarchy (`courses` table). Besides the
// preview image foreign key it owns a collection of CourseImage rows.
type Course struct {
	ID           uint64    // courses.id
	Name         string    // courses.name
	Description  string    // courses.description
	Requirements string    // courses.requirements
	Price        uint32    // courses.price (cents)
	Format       string    // courses.format (e.g. VIDEO, TEXT)
	Edition      string    // courses.edition
	Authors      string    // courses.authors
	VideoPreview string    // courses.video_preview
	SeriesID     uint64    // courses.series_id
	ImageID      *uint64   // courses.image_id (nullable preview image)
	CreatedAt    time.Time // courses.created_at
	UpdatedAt    time.Time // courses.updated_at
}
