package model

import "time"

// Image is the metadata record for one stored binary in the `images`
// table. Ownership is a foreign key from the owner entity (user avatar,
// provider, series or course preview) to the image, never the reverse:
// the instant an owner is re-pointed, the old row is orphaned and must be
// deleted explicitly by the asset lifecycle manager.
//
// Fields:
//  ID          – primary key identifier.
//  URL         – public URL or path of the stored binary.
//  DeletionKey – object-store key used to delete the blob; nil for
//                locally stored files addressed by URL alone.
//  CreatedAt   – timestamp of creation.
type Image struct {
	ID          uint64    // images.id
	URL         string    // images.url
	DeletionKey *string   // images.deletion_key (nullable)
	CreatedAt   time.Time // images.created_at
}

// CourseImage is a secondary (gallery) image of a course in the
// `course_images` table. The set is fully replaced on update, not merged.
type CourseImage struct {
	ID          uint64  // course_images.id
	CourseID    uint64  // course_images.course_id
	URL         string  // course_images.url
	DeletionKey *string // course_images.deletion_key (nullable)
}
