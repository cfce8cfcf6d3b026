// admin.go - privacy-conscious admin dashboard
package main

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nvvs/portfolio/internal/analytics"
)

const adminCookie = "admin_token"

// adminAuth holds the configured credentials and the per-process session token.
type adminAuth struct {
	username string
	password string
	token    string
	secure   bool
}

func newAdminAuth(username, password string, secure bool) (*adminAuth, error) {
	token, err := analytics.RandomToken()
	if err != nil {
		return nil, err
	}
	return &adminAuth{username: username, password: password, token: token, secure: secure}, nil
}

func (a *adminAuth) check(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) == 1
	return userOK && passOK
}

// middleware redirects to the login page unless the session cookie matches.
func (a *adminAuth) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(adminCookie)
		if err != nil || subtle.ConstantTimeCompare([]byte(token), []byte(a.token)) != 1 {
			c.Redirect(http.StatusFound, "/admin/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *server) hashedClient(c *gin.Context) string {
	if s.tracker == nil {
		return ""
	}
	return s.tracker.HashIP(c.ClientIP())
}

func (s *server) setupAdminRoutes(r *gin.Engine) {
	r.GET("/admin/login", func(c *gin.Context) {
		c.HTML(http.StatusOK, "admin-login.html", gin.H{"title": "Admin Login"})
	})

	r.POST("/admin/login", func(c *gin.Context) {
		if !s.admin.check(c.PostForm("username"), c.PostForm("password")) {
			s.logger.Warn("failed admin login", "client", s.hashedClient(c))
			c.HTML(http.StatusUnauthorized, "admin-login.html", gin.H{
				"title": "Admin Login",
				"error": "Invalid credentials",
			})
			return
		}
		c.SetSameSite(http.SameSiteStrictMode)
		c.SetCookie(adminCookie, s.admin.token, 3600*24, "/admin", "", s.admin.secure, true)
		s.logger.Info("admin login", "client", s.hashedClient(c))
		c.Redirect(http.StatusFound, "/admin/dashboard")
	})

	r.GET("/admin/logout", func(c *gin.Context) {
		c.SetCookie(adminCookie, "", -1, "/admin", "", s.admin.secure, true)
		c.Redirect(http.StatusFound, "/admin/login")
	})

	admin := r.Group("/admin")
	admin.Use(s.admin.middleware())

	admin.GET("/dashboard", func(c *gin.Context) {
		if s.tracker == nil {
			c.HTML(http.StatusServiceUnavailable, "admin-error.html", gin.H{"error": "Analytics are disabled"})
			return
		}
		stats, err := s.tracker.Stats(c.Request.Context())
		if err != nil {
			s.logger.Error("load admin stats", "error", err)
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{"error": "Failed to load statistics"})
			return
		}
		c.HTML(http.StatusOK, "admin-dashboard.html", gin.H{
			"title":          "Dashboard",
			"stats":          stats,
			"contactEnabled": s.submitter.Enabled(),
			"candidates":     s.downloader.Candidates(),
		})
	})

	admin.GET("/api/stats", func(c *gin.Context) {
		stats, ok := s.loadStats(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, stats)
	})

	admin.GET("/visitors", func(c *gin.Context) {
		if s.tracker == nil {
			c.HTML(http.StatusServiceUnavailable, "admin-error.html", gin.H{"error": "Analytics are disabled"})
			return
		}
		visitors, err := s.tracker.RecentVisitors(c.Request.Context(), 200)
		if err != nil {
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{"error": "Failed to load visitors"})
			return
		}
		c.HTML(http.StatusOK, "admin-visitors.html", gin.H{"title": "Visitors", "visitors": visitors})
	})

	admin.POST("/privacy/cleanup", func(c *gin.Context) {
		s.track(func(ctx context.Context, t tracker) error {
			n, err := t.Cleanup(ctx, s.retention)
			if err == nil && n > 0 {
				s.logger.Info("privacy cleanup", "removed", n)
			}
			return err
		})
		c.JSON(http.StatusOK, gin.H{"message": "Privacy cleanup initiated"})
	})

	admin.GET("/export/stats", func(c *gin.Context) {
		stats, ok := s.loadStats(c)
		if !ok {
			return
		}
		c.Header("Content-Disposition", "attachment; filename=admin-stats.json")
		s.logger.Info("admin stats exported", "client", s.hashedClient(c))
		c.JSON(http.StatusOK, stats)
	})
}

func (s *server) loadStats(c *gin.Context) (*analytics.Stats, bool) {
	if s.tracker == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "analytics disabled"})
		return nil, false
	}
	stats, err := s.tracker.Stats(c.Request.Context())
	if err != nil {
		s.logger.Error("load admin stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load statistics"})
		return nil, false
	}
	return stats, true
}
