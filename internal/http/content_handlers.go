package http

import (
	"context"
	stdhttp "net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/sirupsen/logrus"

	"merfie/app/internal/content"
)

type contentView struct {
	ID          uint                `json:"id"`
	ContentType content.ContentType `json:"contentType"`
	Slug        string              `json:"slug"`
	Title       string              `json:"title"`
	Subtitle    *string             `json:"subtitle,omitempty"`
	Body        *string             `json:"body,omitempty"`
	HiddenBody  *string             `json:"hiddenBody,omitempty"`
	Published   bool                `json:"published"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
	PublishedAt *time.Time          `json:"publishedAt,omitempty"`
	Tags        []string            `json:"tags"`
	Campaign    *campaignBody       `json:"campaign,omitempty"`
}

type campaignBody struct {
	SystemID uint   `json:"systemId" minimum:"1"`
	Status   string `json:"status,omitempty" maxLength:"32"`
}

type contentBody struct {
	ContentType string        `json:"contentType,omitempty" doc:"campaign, session, note or miniature; ignored on update"`
	Title       string        `json:"title" minLength:"1"`
	Subtitle    *string       `json:"subtitle,omitempty"`
	Body        *string       `json:"body,omitempty"`
	HiddenBody  *string       `json:"hiddenBody,omitempty"`
	Published   bool          `json:"published,omitempty"`
	Tags        []string      `json:"tags,omitempty" doc:"Replaces the tag set when present"`
	Campaign    *campaignBody `json:"campaign,omitempty"`
}

type createContentInput struct {
	Body contentBody
}

type updateContentInput struct {
	ID   int64 `path:"id"`
	Body contentBody
}

type contentIDInput struct {
	ID int64 `path:"id"`
}

type slugInput struct {
	Slug string `path:"slug"`
}

type contentOutput struct {
	Body contentView
}

type tagsBody struct {
	Tags []string `json:"tags"`
}

type setTagsInput struct {
	ID   int64 `path:"id"`
	Body tagsBody
}

type tagsOutput struct {
	Body tagsBody
}

type tagView struct {
	Label string `json:"label"`
	Slug  string `json:"slug"`
}

type listTagsInput struct {
	Type string `query:"type" doc:"Only tags used by this content type"`
}

type listTagsOutput struct {
	Body []tagView
}

type imageBody struct {
	Full      string  `json:"full" minLength:"1"`
	Content   string  `json:"content" minLength:"1"`
	Thumbnail string  `json:"thumbnail" minLength:"1"`
	Alt       *string `json:"alt,omitempty"`
	FocalX    *int    `json:"focalX,omitempty"`
	FocalY    *int    `json:"focalY,omitempty"`
	Artist    *string `json:"artist,omitempty"`
	ArtistURL *string `json:"artistUrl,omitempty"`
	Replace   bool    `json:"replace,omitempty" doc:"Drop existing images first"`
}

type addImagesInput struct {
	ID   int64 `path:"id"`
	Body imageBody
}

type addImagesOutput struct {
	Body struct {
		GroupID string `json:"groupId"`
	}
}

type imageVariantView struct {
	ID     uint    `json:"id"`
	Path   string  `json:"path"`
	Alt    *string `json:"alt,omitempty"`
	FocalX *int    `json:"focalX,omitempty"`
	FocalY *int    `json:"focalY,omitempty"`
}

type imageGroupView struct {
	GroupID string                                 `json:"groupId"`
	Sizes   map[content.ImageSize]imageVariantView `json:"sizes"`
}

type listImagesOutput struct {
	Body []imageGroupView
}

type systemView struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type createSystemInput struct {
	Body struct {
		Name string `json:"name"`
	}
}

type systemOutput struct {
	Body systemView
}

type listSystemsOutput struct {
	Body []systemView
}

func (s *Server) registerContentRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "create-content",
		Method:        stdhttp.MethodPost,
		Path:          "/api/content",
		Summary:       "Create content",
		Tags:          []string{"content"},
		DefaultStatus: stdhttp.StatusCreated,
	}, s.createContentHandler)

	huma.Get(s.api, "/api/content/{id}", s.getContentHandler, tagged("content", "Fetch content by id"))
	huma.Put(s.api, "/api/content/{id}", s.updateContentHandler, tagged("content", "Update content"))

	huma.Register(s.api, huma.Operation{
		OperationID:   "delete-content",
		Method:        stdhttp.MethodDelete,
		Path:          "/api/content/{id}",
		Summary:       "Delete content",
		Tags:          []string{"content"},
		DefaultStatus: stdhttp.StatusNoContent,
	}, s.deleteContentHandler)

	huma.Get(s.api, "/api/slugs/{slug}", s.getContentBySlugHandler, tagged("content", "Fetch content by current or previous slug"))
}

func (s *Server) registerTagRoutes() {
	huma.Put(s.api, "/api/content/{id}/tags", s.setTagsHandler, tagged("tags", "Replace the tags of an item"))
	huma.Get(s.api, "/api/tags", s.listTagsHandler, tagged("tags", "List tags"))
}

func (s *Server) registerImageRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "add-images",
		Method:        stdhttp.MethodPost,
		Path:          "/api/content/{id}/images",
		Summary:       "Attach an uploaded image",
		Tags:          []string{"images"},
		DefaultStatus: stdhttp.StatusCreated,
	}, s.addImagesHandler)

	huma.Get(s.api, "/api/content/{id}/images", s.listImagesHandler, tagged("images", "List images of an item"))
}

func (s *Server) registerSystemRoutes() {
	huma.Get(s.api, "/api/systems", s.listSystemsHandler, tagged("systems", "List game systems"))
	huma.Post(s.api, "/api/systems", s.createSystemHandler, tagged("systems", "Get or create a game system"))
}

func (s *Server) createContentHandler(ctx context.Context, input *createContentInput) (*contentOutput, error) {
	contentType, err := content.ParseContentType(input.Body.ContentType)
	if err != nil {
		return nil, s.apiError(ctx, err, "parsing content type", nil)
	}

	draft := input.Body.draft()
	draft.ContentType = contentType

	item, err := s.content.Create(ctx, draft)
	if err != nil {
		return nil, s.apiError(ctx, err, "creating content", logrus.Fields{"title": draft.Title})
	}

	return s.contentResponse(ctx, item)
}

func (s *Server) getContentHandler(ctx context.Context, input *contentIDInput) (*contentOutput, error) {
	id, ok := contentID(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("Content not found.")
	}

	item, err := s.content.Get(ctx, id)
	if err != nil {
		return nil, s.apiError(ctx, err, "loading content", logrus.Fields{"content_id": id})
	}
	if item == nil {
		return nil, huma.Error404NotFound("Content not found.")
	}

	return s.contentResponse(ctx, item)
}

func (s *Server) getContentBySlugHandler(ctx context.Context, input *slugInput) (*contentOutput, error) {
	slug := strings.TrimSpace(input.Slug)
	if slug == "" {
		return nil, huma.Error400BadRequest("A slug is required.")
	}

	item, err := s.content.GetBySlug(ctx, slug)
	if err != nil {
		return nil, s.apiError(ctx, err, "loading content by slug", logrus.Fields{"slug": slug})
	}
	if item == nil {
		return nil, huma.Error404NotFound("Content not found.")
	}

	return s.contentResponse(ctx, item)
}

func (s *Server) updateContentHandler(ctx context.Context, input *updateContentInput) (*contentOutput, error) {
	id, ok := contentID(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("Content not found.")
	}

	item, err := s.content.Update(ctx, id, input.Body.draft())
	if err != nil {
		return nil, s.apiError(ctx, err, "updating content", logrus.Fields{"content_id": id})
	}

	return s.contentResponse(ctx, item)
}

func (s *Server) deleteContentHandler(ctx context.Context, input *contentIDInput) (*struct{}, error) {
	id, ok := contentID(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("Content not found.")
	}

	if err := s.content.Delete(ctx, id); err != nil {
		return nil, s.apiError(ctx, err, "deleting content", logrus.Fields{"content_id": id})
	}
	return nil, nil
}

func (s *Server) setTagsHandler(ctx context.Context, input *setTagsInput) (*tagsOutput, error) {
	id, ok := contentID(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("Content not found.")
	}

	if err := s.content.SetTags(ctx, id, input.Body.Tags); err != nil {
		return nil, s.apiError(ctx, err, "setting tags", logrus.Fields{"content_id": id})
	}

	tags, err := s.content.TagsFor(ctx, id)
	if err != nil {
		return nil, s.apiError(ctx, err, "loading tags", logrus.Fields{"content_id": id})
	}

	return &tagsOutput{Body: tagsBody{Tags: nonNil(tags)}}, nil
}

func (s *Server) listTagsHandler(ctx context.Context, input *listTagsInput) (*listTagsOutput, error) {
	var filter *content.ContentType
	if raw := strings.TrimSpace(input.Type); raw != "" {
		contentType, err := content.ParseContentType(raw)
		if err != nil {
			return nil, s.apiError(ctx, err, "parsing content type filter", nil)
		}
		filter = &contentType
	}

	tags, err := s.content.ListTags(ctx, filter)
	if err != nil {
		return nil, s.apiError(ctx, err, "listing tags", nil)
	}

	views := make([]tagView, 0, len(tags))
	for _, tag := range tags {
		views = append(views, tagView{Label: tag.Label, Slug: tag.Slug})
	}
	return &listTagsOutput{Body: views}, nil
}

func (s *Server) addImagesHandler(ctx context.Context, input *addImagesInput) (*addImagesOutput, error) {
	id, ok := contentID(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("Content not found.")
	}

	body := input.Body
	paths := content.ImagePaths{Full: body.Full, Content: body.Content, Thumbnail: body.Thumbnail}
	meta := content.ImageMetadata{
		Alt:       body.Alt,
		FocalX:    body.FocalX,
		FocalY:    body.FocalY,
		Artist:    body.Artist,
		ArtistURL: body.ArtistURL,
	}

	store := s.content.AddImages
	if body.Replace {
		store = s.content.ReplaceImages
	}

	groupID, err := store(ctx, id, paths, meta)
	if err != nil {
		return nil, s.apiError(ctx, err, "storing images", logrus.Fields{"content_id": id})
	}

	out := &addImagesOutput{}
	out.Body.GroupID = groupID
	return out, nil
}

func (s *Server) listImagesHandler(ctx context.Context, input *contentIDInput) (*listImagesOutput, error) {
	id, ok := contentID(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("Content not found.")
	}

	groups, err := s.content.ImagesFor(ctx, id)
	if err != nil {
		return nil, s.apiError(ctx, err, "listing images", logrus.Fields{"content_id": id})
	}

	views := make([]imageGroupView, 0, len(groups))
	for _, group := range groups {
		view := imageGroupView{GroupID: group.GroupID, Sizes: make(map[content.ImageSize]imageVariantView, len(group.Sizes))}
		for size, img := range group.Sizes {
			view.Sizes[size] = imageVariantView{ID: img.ID, Path: img.Path, Alt: img.Alt, FocalX: img.FocalX, FocalY: img.FocalY}
		}
		views = append(views, view)
	}
	return &listImagesOutput{Body: views}, nil
}

func (s *Server) listSystemsHandler(ctx context.Context, _ *struct{}) (*listSystemsOutput, error) {
	systems, err := s.content.ListSystems(ctx)
	if err != nil {
		return nil, s.apiError(ctx, err, "listing systems", nil)
	}

	views := make([]systemView, 0, len(systems))
	for _, system := range systems {
		views = append(views, systemView{ID: system.ID, Name: system.Name, Slug: system.Slug})
	}
	return &listSystemsOutput{Body: views}, nil
}

func (s *Server) createSystemHandler(ctx context.Context, input *createSystemInput) (*systemOutput, error) {
	system, err := s.content.GetOrCreateSystem(ctx, input.Body.Name)
	if err != nil {
		return nil, s.apiError(ctx, err, "resolving system", logrus.Fields{"system": input.Body.Name})
	}
	return &systemOutput{Body: systemView{ID: system.ID, Name: system.Name, Slug: system.Slug}}, nil
}

func (s *Server) contentResponse(ctx context.Context, item *content.Item) (*contentOutput, error) {
	tags, err := s.content.TagsFor(ctx, item.ID)
	if err != nil {
		return nil, s.apiError(ctx, err, "loading tags", logrus.Fields{"content_id": item.ID})
	}

	var campaign *campaignBody
	if item.ContentType == content.TypeCampaign {
		details, err := s.content.CampaignDetailsFor(ctx, item.ID)
		if err != nil {
			return nil, s.apiError(ctx, err, "loading campaign details", logrus.Fields{"content_id": item.ID})
		}
		if details != nil {
			campaign = &campaignBody{SystemID: details.SystemID, Status: details.Status}
		}
	}

	return &contentOutput{Body: contentView{
		ID:          item.ID,
		ContentType: item.ContentType,
		Slug:        item.Slug,
		Title:       item.Title,
		Subtitle:    item.Subtitle,
		Body:        item.Body,
		HiddenBody:  item.HiddenBody,
		Published:   item.Published,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
		PublishedAt: item.PublishedAt,
		Tags:        nonNil(tags),
		Campaign:    campaign,
	}}, nil
}

func (b contentBody) draft() content.Draft {
	draft := content.Draft{
		Title:      b.Title,
		Subtitle:   b.Subtitle,
		Body:       b.Body,
		HiddenBody: b.HiddenBody,
		Published:  b.Published,
		Tags:       b.Tags,
	}
	if b.Campaign != nil {
		draft.Campaign = &content.CampaignDraft{SystemID: b.Campaign.SystemID, Status: b.Campaign.Status}
	}
	return draft
}

func contentID(raw int64) (uint, bool) {
	if raw <= 0 {
		return 0, false
	}
	return uint(raw), true
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func tagged(tag, summary string) func(op *huma.Operation) {
	return func(op *huma.Operation) {
		op.Summary = summary
		op.Tags = []string{tag}
	}
}
