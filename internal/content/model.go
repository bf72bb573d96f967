package content

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// ContentType identifies which kind of publishable unit an Item is.
type ContentType string

const (
	TypeCampaign  ContentType = "campaign"
	TypeSession   ContentType = "session"
	TypeNote      ContentType = "note"
	TypeMiniature ContentType = "miniature"
)

var contentTypes = []ContentType{TypeCampaign, TypeSession, TypeNote, TypeMiniature}

// ContentTypes lists every supported content type.
func ContentTypes() []ContentType {
	out := make([]ContentType, len(contentTypes))
	copy(out, contentTypes)
	return out
}

// Valid reports whether t is one of the supported content types.
func (t ContentType) Valid() bool {
	for _, candidate := range contentTypes {
		if t == candidate {
			return true
		}
	}
	return false
}

// ParseContentType normalises raw and validates it against the supported content types.
func ParseContentType(raw string) (ContentType, error) {
	parsed := ContentType(strings.ToLower(strings.TrimSpace(raw)))
	if !parsed.Valid() {
		return "", eris.Wrapf(ErrInvalidContentType, "parsing content type %q", raw)
	}
	return parsed, nil
}

// Item is the shared base record for campaigns, sessions, notes and miniatures.
type Item struct {
	ID          uint        `gorm:"primaryKey;autoIncrement"`
	ContentType ContentType `gorm:"size:32;not null;index:idx_content_type_created,priority:1"`
	Slug        string      `gorm:"size:255;uniqueIndex:idx_content_slug;not null"`
	Title       string      `gorm:"type:text;not null"`
	Subtitle    *string     `gorm:"type:text"`
	Body        *string     `gorm:"type:text"`
	HiddenBody  *string     `gorm:"type:text"`
	Published   bool        `gorm:"not null;default:false"`
	CreatedAt   time.Time   `gorm:"not null;index:idx_content_type_created,priority:2"`
	UpdatedAt   time.Time
	PublishedAt *time.Time
}

// TableName defines the table name for the Item model.
func (Item) TableName() string {
	return "content"
}

// Tag is a unique label that can be attached to any number of items.
type Tag struct {
	ID    uint   `gorm:"primaryKey;autoIncrement"`
	Label string `gorm:"column:tag;size:100;uniqueIndex:idx_tags_tag;not null"`
	Slug  string `gorm:"size:120;uniqueIndex:idx_tags_slug;not null"`
}

// TableName defines the table name for the Tag model.
func (Tag) TableName() string {
	return "tags"
}

// ItemTag associates an item with a tag. Rows disappear with their item.
type ItemTag struct {
	ContentID uint  `gorm:"primaryKey;autoIncrement:false"`
	TagID     uint  `gorm:"primaryKey;autoIncrement:false;index"`
	Item      *Item `gorm:"foreignKey:ContentID;constraint:OnDelete:CASCADE"`
	Tag       *Tag  `gorm:"foreignKey:TagID"`
}

// TableName defines the table name for the ItemTag model.
func (ItemTag) TableName() string {
	return "content_tags"
}

// ImageSize names one of the variants produced from a single upload.
type ImageSize string

const (
	SizeFull      ImageSize = "full"
	SizeContent   ImageSize = "content"
	SizeThumbnail ImageSize = "thumbnail"
)

// Image is one size variant of an uploaded image. Variants of the same upload share GroupID.
type Image struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	GroupID   string    `gorm:"size:36;not null;uniqueIndex:idx_media_images_group_size,priority:1"`
	ContentID uint      `gorm:"not null;index"`
	Size      ImageSize `gorm:"column:image_size;size:16;not null;uniqueIndex:idx_media_images_group_size,priority:2"`
	Path      string    `gorm:"column:image_path;type:text;not null"`
	Alt       *string   `gorm:"column:image_alt;type:text"`
	FocalX    *int      `gorm:"column:image_focal_x"`
	FocalY    *int      `gorm:"column:image_focal_y"`
	Artist    *string   `gorm:"column:image_artist;type:text"`
	ArtistURL *string   `gorm:"column:image_artist_url;type:text"`
	Item      *Item     `gorm:"foreignKey:ContentID;constraint:OnDelete:CASCADE"`
}

// TableName defines the table name for the Image model.
func (Image) TableName() string {
	return "media_images"
}

// Alias keeps a previous slug resolvable after an item is renamed.
type Alias struct {
	Slug        string      `gorm:"primaryKey;size:255"`
	ContentType ContentType `gorm:"primaryKey;size:32"`
	ContentID   uint        `gorm:"not null;index"`
	Item        *Item       `gorm:"foreignKey:ContentID;constraint:OnDelete:CASCADE"`
}

// TableName defines the table name for the Alias model.
func (Alias) TableName() string {
	return "content_alias"
}

// System is a tabletop game system a campaign is played in.
type System struct {
	ID   uint   `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"size:100;uniqueIndex:idx_content_systems_name;not null"`
	Slug string `gorm:"size:120;uniqueIndex:idx_content_systems_slug;not null"`
}

// TableName defines the table name for the System model.
func (System) TableName() string {
	return "content_systems"
}

// CampaignDetails holds the campaign-only columns for an item of TypeCampaign.
type CampaignDetails struct {
	ContentID uint    `gorm:"primaryKey;autoIncrement:false"`
	SystemID  uint    `gorm:"not null;index"`
	Status    string  `gorm:"size:32;not null"`
	Item      *Item   `gorm:"foreignKey:ContentID;constraint:OnDelete:CASCADE"`
	System    *System `gorm:"foreignKey:SystemID"`
}

// TableName defines the table name for the CampaignDetails model.
func (CampaignDetails) TableName() string {
	return "content_campaign_details"
}

// DefaultCampaignStatus is applied when a campaign draft leaves Status empty.
const DefaultCampaignStatus = "active"
