// Package models holds the database models for the portfolio content.
//
// Each struct doubles as the wire representation: the json tag is the
// camelCase name clients see, gorm derives the snake_case column from the
// Go field name, and the validate tag carries the input rules. Adding a
// field means adding one line here.
package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// Base carries the columns every table shares. They are owned by storage
// and read-only on the wire.
type Base struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Meta exposes the shared columns of any model embedding Base.
func (b *Base) Meta() *Base { return b }

// Record is implemented by pointers to every model in this package.
type Record interface {
	Meta() *Base
}

// Object is a free-form JSON object column. Decoding replaces the whole
// value instead of merging keys into the existing map.
type Object map[string]any

func (o *Object) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*o = m
	return nil
}

type SocialLink struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
}

// SocialLinks is the profile's ordered link list. Decoding replaces the
// whole list; encoding/json would otherwise fill existing elements in place
// and keep fields the body leaves out.
type SocialLinks []SocialLink

func (s *SocialLinks) UnmarshalJSON(b []byte) error {
	var links []SocialLink
	if err := json.Unmarshal(b, &links); err != nil {
		return err
	}
	*s = links
	return nil
}

type Profile struct {
	Base
	Name          string      `json:"name" gorm:"size:255" validate:"required,max=255"`
	Title         string      `json:"title" gorm:"size:255" validate:"required,max=255"`
	Bio           string      `json:"bio" validate:"required"`
	AdminPassword string      `json:"adminPassword,omitempty" gorm:"size:255"` // bcrypt hash once stored
	AboutMe       *string     `json:"aboutMe"`
	Email         string      `json:"email" gorm:"size:254" validate:"required,email,max=254"`
	Phone         string      `json:"phone" gorm:"size:20" validate:"required,max=20"`
	Location      string      `json:"location" gorm:"size:255" validate:"required,max=255"`
	Avatar        string      `json:"avatar" validate:"required"`
	CV            *string     `json:"cv"`
	SocialLinks   SocialLinks `json:"socialLinks" gorm:"serializer:json"`
	AboutContent  Object      `json:"aboutContent" gorm:"serializer:json"`
	Active        bool        `json:"-" gorm:"index"`
}

func (Profile) TableName() string { return "api_profile" }

// MarshalJSON keeps the admin password out of every response.
func (p Profile) MarshalJSON() ([]byte, error) {
	type profile Profile
	out := profile(p)
	out.AdminPassword = ""
	return json.Marshal(out)
}

func (p *Profile) BeforeSave(tx *gorm.DB) error {
	if p.SocialLinks == nil {
		p.SocialLinks = SocialLinks{}
	}
	if p.AboutContent == nil {
		p.AboutContent = Object{}
	}
	return nil
}

// Category is the closed set of project kinds.
type Category string

const (
	CategoryWeb    Category = "web"
	CategoryMobile Category = "mobile"
	CategoryData   Category = "data"
	CategoryOther  Category = "other"
)

// Categories lists every accepted Category.
var Categories = []Category{CategoryWeb, CategoryMobile, CategoryData, CategoryOther}

// Valid reports whether c is one of Categories.
func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

type Project struct {
	Base
	Title        string   `json:"title" gorm:"size:255" validate:"required,max=255"`
	Description  string   `json:"description" validate:"required"`
	Image        string   `json:"image" validate:"required"` // URL or base64
	Technologies []string `json:"technologies" gorm:"serializer:json"`
	GithubURL    *string  `json:"githubUrl"`
	LiveURL      *string  `json:"liveUrl"`
	Category     Category `json:"category" gorm:"size:50;index" validate:"required,oneof=web mobile data other"`
	Featured     bool     `json:"featured"`
}

func (Project) TableName() string { return "api_project" }

func (p *Project) BeforeSave(tx *gorm.DB) error {
	if p.Technologies == nil {
		p.Technologies = []string{}
	}
	return nil
}

type Education struct {
	Base
	School      string  `json:"school" gorm:"size:255" validate:"required,max=255"`
	Degree      string  `json:"degree" gorm:"size:255" validate:"required,max=255"`
	Field       string  `json:"field" gorm:"size:255" validate:"required,max=255"`
	StartDate   *string `json:"startDate" gorm:"size:50" validate:"omitempty,max=50"` // free text, e.g. "Sep 2019"
	EndDate     *string `json:"endDate" gorm:"size:50" validate:"omitempty,max=50"`
	Description *string `json:"description"`
}

func (Education) TableName() string { return "api_education" }

type Certification struct {
	Base
	Title         string   `json:"title" gorm:"size:255" validate:"required,max=255"`
	Issuer        string   `json:"issuer" gorm:"size:255" validate:"required,max=255"`
	IssueDate     *string  `json:"issueDate" gorm:"size:50" validate:"omitempty,max=50"`
	ExpiryDate    *string  `json:"expiryDate" gorm:"size:50" validate:"omitempty,max=50"`
	Image         *string  `json:"image"`
	Skills        []string `json:"skills" gorm:"serializer:json"`
	CredentialURL *string  `json:"credentialUrl"`
	Description   *string  `json:"description"`
}

func (Certification) TableName() string { return "api_certification" }

func (c *Certification) BeforeSave(tx *gorm.DB) error {
	if c.Skills == nil {
		c.Skills = []string{}
	}
	return nil
}

// Message is a contact-form submission.
type Message struct {
	Base
	Name    string `json:"name" gorm:"size:255" validate:"required,max=255"`
	Email   string `json:"email" gorm:"size:254" validate:"required,email,max=254"`
	Subject string `json:"subject" gorm:"size:255" validate:"required,max=255"`
	Message string `json:"message" validate:"required"`
	Read    bool   `json:"read"`
}

func (Message) TableName() string { return "api_message" }

type Stats struct {
	Base
	Projects   int `json:"projects"`
	Clients    int `json:"clients"`
	Experience int `json:"experience"` // years
}

func (Stats) TableName() string { return "api_stats" }

// All returns one value of every model, in migration order.
func All() []any {
	return []any{&Profile{}, &Project{}, &Education{}, &Certification{}, &Message{}, &Stats{}}
}
