package main

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nvvs/portfolio/internal/analytics"
	"github.com/nvvs/portfolio/internal/contact"
	"github.com/nvvs/portfolio/internal/content"
	"github.com/nvvs/portfolio/internal/resume"
)

// tracker is the analytics surface the handlers use. *analytics.Store
// satisfies it; a nil tracker disables tracking.
type tracker interface {
	HashIP(ip string) string
	RecordVisit(ctx context.Context, ip, userAgent, path string) error
	RecordDownload(ctx context.Context, ip, path, outcome string) error
	RecordContact(ctx context.Context, outcome string) error
	Stats(ctx context.Context) (*analytics.Stats, error)
	RecentVisitors(ctx context.Context, limit int) ([]analytics.Visit, error)
	Cleanup(ctx context.Context, retention time.Duration) (int64, error)
}

type server struct {
	logger     *slog.Logger
	profile    *content.Profile
	downloader *resume.Downloader
	submitter  *contact.Submitter
	tracker    tracker
	admin      *adminAuth
	publicDir  string
	retention  time.Duration
	templates  *template.Template

	wg sync.WaitGroup
}

type serverDeps struct {
	Logger     *slog.Logger
	Profile    *content.Profile
	Downloader *resume.Downloader
	Submitter  *contact.Submitter
	Tracker    tracker
	Admin      *adminAuth
	PublicDir  string
	Retention  time.Duration
}

func newServer(d serverDeps) (*server, error) {
	tmpl, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &server{
		logger:     logger,
		profile:    d.Profile,
		downloader: d.Downloader,
		submitter:  d.Submitter,
		tracker:    d.Tracker,
		admin:      d.Admin,
		publicDir:  d.PublicDir,
		retention:  d.Retention,
		templates:  tmpl,
	}, nil
}

func (s *server) routes() *gin.Engine {
	r := gin.New()
	r.Use(requestID(), requestLogger(s.logger), gin.Recovery(), s.visitorTracking())
	r.SetHTMLTemplate(s.templates)

	r.StaticFS("/static", http.FS(staticFiles()))
	r.Static("/assets", filepath.Join(s.publicDir, "assets"))

	r.GET("/", s.handleIndex)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/contact-form", s.handleContactForm)
	r.POST("/contact", s.handleContact)
	r.GET("/resume/download", s.handleResume)
	r.GET("/privacy", func(c *gin.Context) {
		c.HTML(http.StatusOK, "privacy.html", gin.H{
			"title":   "Privacy Policy",
			"Profile": s.profile,
			"Notice":  PrivacyNotice,
		})
	})

	if s.admin != nil {
		s.setupAdminRoutes(r)
	}
	return r
}

// track runs fn in the background with its own deadline so tracking never
// holds up a response.
func (s *server) track(fn func(ctx context.Context, t tracker) error) {
	if s.tracker == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := fn(ctx, s.tracker); err != nil {
			s.logger.Warn("analytics write failed", "error", err)
		}
	}()
}

// wait blocks until background tracking writes finish.
func (s *server) wait() { s.wg.Wait() }

// contactView is what the contact-form fragment renders.
type contactView struct {
	Form    contact.Form
	Enabled bool
}

func (s *server) pageData(form contact.Form) gin.H {
	return gin.H{
		"title":   s.profile.Name,
		"Profile": s.profile,
		"Contact": contactView{Form: form, Enabled: s.submitter.Enabled()},
		"Year":    time.Now().Year(),
	}
}

func (s *server) handleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", s.pageData(contact.Form{}))
}

func (s *server) handleContactForm(c *gin.Context) {
	c.HTML(http.StatusOK, "contact-form.html", contactView{Enabled: s.submitter.Enabled()})
}

type contactRequest struct {
	Name    string `form:"from_name" binding:"required,max=200"`
	ReplyTo string `form:"reply_to" binding:"required,email,max=320"`
	Message string `form:"message" binding:"required,max=5000"`
}

// handleContact answers HTMX posts with the re-rendered form fragment and
// plain posts with the whole page. Outcomes are always 200 so HTMX swaps them.
func (s *server) handleContact(c *gin.Context) {
	var req contactRequest
	bindErr := c.ShouldBind(&req)

	form := contact.Form{Fields: contact.Fields{Name: req.Name, ReplyTo: req.ReplyTo, Message: req.Message}}
	var outcome string

	if bindErr != nil {
		form.Status = ContactInvalid
		outcome = analytics.ContactInvalid
	} else {
		err := s.submitter.Submit(c.Request.Context(), &form)
		switch {
		case err == nil:
			outcome = analytics.ContactSent
		case errors.Is(err, contact.ErrMissingConfig):
			outcome = analytics.ContactMissingConfig
		default:
			outcome = analytics.ContactFailed
		}
	}
	s.track(func(ctx context.Context, t tracker) error { return t.RecordContact(ctx, outcome) })

	if c.GetHeader("HX-Request") == "" {
		c.HTML(http.StatusOK, "index.html", s.pageData(form))
		return
	}
	c.HTML(http.StatusOK, "contact-form.html", contactView{Form: form, Enabled: s.submitter.Enabled()})
}

func (s *server) handleResume(c *gin.Context) {
	ctx := c.Request.Context()
	dl, err := s.downloader.Prepare(ctx)

	if dl != nil && dl.Outcome != resume.OutcomeAborted && c.GetHeader("DNT") != "1" {
		ip, path, outcome := c.ClientIP(), dl.Path, string(dl.Outcome)
		s.track(func(ctx context.Context, t tracker) error { return t.RecordDownload(ctx, ip, path, outcome) })
	}

	c.Header("Cache-Control", "no-store")

	switch {
	case errors.Is(err, resume.ErrNotFound):
		c.HTML(http.StatusNotFound, "resume-missing.html", gin.H{
			"title":   "Resume not found",
			"Profile": s.profile,
			"Message": ResumeMissing,
		})
	case err != nil:
		s.logger.WarnContext(ctx, "resume download aborted", "error", err)
		c.HTML(http.StatusServiceUnavailable, "resume-missing.html", gin.H{
			"title":   "Resume unavailable",
			"Profile": s.profile,
			"Message": ResumeUnavailable,
		})
	case dl.Outcome == resume.OutcomeFallback:
		c.Redirect(http.StatusFound, dl.FallbackURL)
	default:
		c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": dl.Filename}))
		c.Data(http.StatusOK, dl.Blob.ContentType, dl.Blob.Data)
	}
}
