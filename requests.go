package blog

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/jinukeu/blog/content"
)

// documentRequest is the body of post and draft writes.
type documentRequest struct {
	Slug        string              `json:"slug"`
	Content     string              `json:"content"`
	Frontmatter content.Frontmatter `json:"frontmatter"`
}

func (r documentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.Required.Error("content is required")),
		validation.Field(&r.Slug, validation.By(validSlugIfSet)),
	)
}

func validSlugIfSet(v interface{}) error {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	return content.ValidateSlug(s)
}

type createCategoryRequest struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

func (r createCategoryRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Type,
			validation.Required.Error("type is required"),
			validation.In(string(content.KindMain), string(content.KindSub)).Error(`type must be "main" or "sub"`),
		),
		validation.Field(&r.Name,
			validation.By(notBlank("name is required")),
			validation.RuneLength(1, 100),
		),
	)
}

type updateCategoryRequest struct {
	Name string `json:"name"`
}

func (r updateCategoryRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name,
			validation.By(notBlank("name is required")),
			validation.RuneLength(1, 100),
		),
	)
}

type previewRequest struct {
	Content string `json:"content"`
}

type loginRequest struct {
	Password string `json:"password" form:"password"`
}

func (r loginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password, validation.Required.Error("password is required")),
	)
}

func notBlank(msg string) validation.RuleFunc {
	return func(v interface{}) error {
		s, _ := v.(string)
		if strings.TrimSpace(s) == "" {
			return validation.NewError("validation_blank", msg)
		}
		return nil
	}
}
