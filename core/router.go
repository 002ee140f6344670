package core

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// NewRouter constructs the Gin engine with routes wired.
func NewRouter(cfg Config, gate *AuthGate, authService *AuthService, users UserDirectory, stats *StatsService, redisClient *redis.Client) *gin.Engine {
	r := gin.Default()

	r.Use(CORSMiddleware(cfg))

	r.GET("/healthz", func(c *gin.Context) {
		ctx := c.Request.Context()
		directory := "ok"
		if _, err := users.HasAdmin(ctx); err != nil {
			directory = "unavailable"
		}
		cache := "disabled"
		if redisClient != nil {
			cache = "ok"
			if err := redisClient.Ping(ctx).Err(); err != nil {
				cache = "unavailable"
			}
		}
		status := http.StatusOK
		if directory != "ok" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": statusWord(status), "directory": directory, "cache": cache})
	})

	api := r.Group("/api/v1")
	{
		api.POST("/auth/register", func(c *gin.Context) {
			var req struct {
				Email     string `json:"email"`
				Password  string `json:"password"`
				FirstName string `json:"firstName"`
				LastName  string `json:"lastName"`
				Role      string `json:"role"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
				return
			}

			res, err := authService.Register(c.Request.Context(), RegisterInput{
				Email:     req.Email,
				Password:  req.Password,
				FirstName: req.FirstName,
				LastName:  req.LastName,
				Role:      req.Role,
			})
			if err != nil {
				respondAuthError(c, err)
				return
			}
			stats.Invalidate(c.Request.Context())

			c.JSON(http.StatusCreated, gin.H{
				"user":  userJSON(res.User),
				"token": res.Token,
			})
		})

		api.POST("/auth/login", func(c *gin.Context) {
			var req struct {
				Email    string `json:"email"`
				Password string `json:"password"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
				return
			}

			res, err := authService.Login(c.Request.Context(), req.Email, req.Password)
			if err != nil {
				respondAuthError(c, err)
				return
			}

			c.JSON(http.StatusOK, gin.H{
				"user":  userJSON(res.User),
				"token": res.Token,
			})
		})

		authed := api.Group("")
		authed.Use(RequireAuth(gate))

		authed.GET("/users/profile", func(c *gin.Context) {
			p, _ := CurrentPrincipal(c)
			u, err := users.FindByID(c.Request.Context(), p.UserID)
			if err != nil {
				respondAuthError(c, directoryErr(err))
				return
			}
			c.JSON(http.StatusOK, gin.H{"user": userJSON(u)})
		})

		authed.PUT("/users/profile", func(c *gin.Context) {
			p, _ := CurrentPrincipal(c)
			var req struct {
				FirstName   *string `json:"firstName"`
				LastName    *string `json:"lastName"`
				PhoneNumber *string `json:"phoneNumber"`
				Institution *string `json:"institution"`
				Grade       *string `json:"grade"`
				Subject     *string `json:"subject"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
				return
			}

			u, err := authService.UpdateProfile(c.Request.Context(), p, ProfileUpdate{
				FirstName:   req.FirstName,
				LastName:    req.LastName,
				PhoneNumber: req.PhoneNumber,
				Institution: req.Institution,
				Grade:       req.Grade,
				Subject:     req.Subject,
			})
			if err != nil {
				respondAuthError(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"user": userJSON(u)})
		})

		authed.GET("/users/search/:query", func(c *gin.Context) {
			role, err := optionalRoleFilter(c.Query("role"))
			if err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "role must be student or educator")
				return
			}
			found, err := users.Search(c.Request.Context(), c.Param("query"), role, 20)
			if err != nil {
				respondAuthError(c, directoryErr(err))
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"users": usersJSON(found),
				"count": len(found),
			})
		})

		staff := authed.Group("")
		staff.Use(RequireRole(RoleEducator, RoleAdmin))

		staff.GET("/users", func(c *gin.Context) {
			page, limit, err := parsePagination(c.Query("page"), c.Query("limit"))
			if err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
				return
			}
			role, err := optionalRoleFilter(c.Query("role"))
			if err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "role must be student or educator")
				return
			}

			items, total, err := users.List(c.Request.Context(), UserListFilter{Role: role}, page, limit)
			if err != nil {
				respondAuthError(c, directoryErr(err))
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"users": usersJSON(items),
				"pagination": gin.H{
					"page":  page,
					"limit": limit,
					"total": total,
					"pages": calcTotalPages(total, limit),
				},
			})
		})

		staff.GET("/users/:id", func(c *gin.Context) {
			u, err := users.FindByID(c.Request.Context(), c.Param("id"))
			if err != nil {
				if errors.Is(err, ErrUserNotFound) {
					respondError(c, http.StatusNotFound, "NOT_FOUND", "user not found")
					return
				}
				respondAuthError(c, directoryErr(err))
				return
			}
			c.JSON(http.StatusOK, gin.H{"user": userJSON(u)})
		})

		dashboard := authed.Group("/dashboard")
		{
			dashboard.GET("/student", RequireRole(RoleStudent), func(c *gin.Context) {
				ctx := c.Request.Context()
				p, _ := CurrentPrincipal(c)
				student, err := users.FindByID(ctx, p.UserID)
				if err != nil {
					respondAuthError(c, directoryErr(err))
					return
				}
				counts, err := stats.UserCounts(ctx)
				if err != nil {
					respondAuthError(c, directoryErr(err))
					return
				}
				educators, err := users.ListByInstitution(ctx, RoleEducator, student.Institution, 5)
				if err != nil {
					respondAuthError(c, directoryErr(err))
					return
				}
				c.JSON(http.StatusOK, gin.H{
					"student": userJSON(student),
					"statistics": gin.H{
						"total_students":  counts.TotalStudents,
						"total_educators": counts.TotalEducators,
					},
					"educators":         usersJSON(educators),
					"recent_activities": placeholderActivities(),
					"upcoming_events":   placeholderEvents(),
				})
			})

			dashboard.GET("/educator", RequireRole(RoleEducator), func(c *gin.Context) {
				ctx := c.Request.Context()
				p, _ := CurrentPrincipal(c)
				educator, err := users.FindByID(ctx, p.UserID)
				if err != nil {
					respondAuthError(c, directoryErr(err))
					return
				}
				counts, err := stats.UserCounts(ctx)
				if err != nil {
					respondAuthError(c, directoryErr(err))
					return
				}
				students, err := users.ListByInstitution(ctx, RoleStudent, educator.Institution, 10)
				if err != nil {
					respondAuthError(c, directoryErr(err))
					return
				}
				c.JSON(http.StatusOK, gin.H{
					"educator": userJSON(educator),
					"statistics": gin.H{
						"total_students":            counts.TotalStudents,
						"total_educators":           counts.TotalEducators,
						"same_institution_students": len(students),
					},
					"students":          usersJSON(students),
					"recent_activities": placeholderActivities(),
				})
			})

			dashboard.GET("/admin", RequireRole(RoleAdmin), func(c *gin.Context) {
				ctx := c.Request.Context()
				p, _ := CurrentPrincipal(c)
				admin, err := users.FindByID(ctx, p.UserID)
				if err != nil {
					respondAuthError(c, directoryErr(err))
					return
				}
				counts, err := stats.UserCounts(ctx)
				if err != nil {
					respondAuthError(c, directoryErr(err))
					return
				}
				recent, _, err := users.List(ctx, UserListFilter{IncludeInactive: true}, 1, 5)
				if err != nil {
					respondAuthError(c, directoryErr(err))
					return
				}
				c.JSON(http.StatusOK, gin.H{
					"admin": userJSON(admin),
					"statistics": gin.H{
						"total_students":  counts.TotalStudents,
						"total_educators": counts.TotalEducators,
						"total_admins":    counts.TotalAdmins,
						"total_users":     counts.TotalStudents + counts.TotalEducators + counts.TotalAdmins,
					},
					"recent_registrations": usersJSON(recent),
				})
			})
		}

		admin := authed.Group("/admin")
		admin.Use(RequireRole(RoleAdmin))

		admin.GET("/users", func(c *gin.Context) {
			page, limit, err := parsePagination(c.Query("page"), c.Query("limit"))
			if err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
				return
			}
			role, err := optionalRoleFilter(c.Query("role"))
			if err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "role must be student or educator")
				return
			}

			items, total, err := users.List(c.Request.Context(), UserListFilter{Role: role, IncludeInactive: true}, page, limit)
			if err != nil {
				respondAuthError(c, directoryErr(err))
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"users": usersJSON(items),
				"pagination": gin.H{
					"page":  page,
					"limit": limit,
					"total": total,
					"pages": calcTotalPages(total, limit),
				},
			})
		})

		admin.PATCH("/users/:id/active", func(c *gin.Context) {
			var req struct {
				Active *bool `json:"active"`
			}
			if err := c.ShouldBindJSON(&req); err != nil || req.Active == nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "active is required")
				return
			}

			u, err := authService.SetActive(c.Request.Context(), c.Param("id"), *req.Active)
			if err != nil {
				if errors.Is(err, ErrUnknownUser) {
					respondError(c, http.StatusNotFound, "NOT_FOUND", "user not found")
					return
				}
				respondAuthError(c, err)
				return
			}
			stats.Invalidate(c.Request.Context())
			c.JSON(http.StatusOK, gin.H{"user": userJSON(u)})
		})
	}

	return r
}

// userJSON renders a record for API responses; the password hash never leaves
// the server.
func userJSON(u *UserRecord) gin.H {
	return gin.H{
		"id":          u.ID,
		"email":       u.Email,
		"firstName":   u.FirstName,
		"lastName":    u.LastName,
		"fullName":    u.FullName(),
		"role":        u.Role,
		"phoneNumber": u.PhoneNumber,
		"institution": u.Institution,
		"grade":       u.Grade,
		"subject":     u.Subject,
		"isActive":    u.Active,
		"lastLogin":   u.LastLogin,
		"createdAt":   u.CreatedAt,
	}
}

func usersJSON(items []UserRecord) []gin.H {
	out := make([]gin.H, 0, len(items))
	for i := range items {
		out = append(out, userJSON(&items[i]))
	}
	return out
}

// directoryErr tags raw backend failures so the error responder maps them to
// 503 instead of leaking them as auth failures.
func directoryErr(err error) error {
	if errors.Is(err, ErrUserNotFound) {
		// The principal was resolved moments ago; a miss here means the
		// record vanished between verification and this lookup.
		return ErrUnknownUser
	}
	if errors.Is(err, ErrDirectoryUnavailable) {
		return err
	}
	return errors.Join(ErrDirectoryUnavailable, err)
}

// optionalRoleFilter parses a role query parameter. Only student and educator
// are filterable, matching the public listing behavior.
func optionalRoleFilter(raw string) (Role, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	role, ok := ParseRole(raw)
	if !ok || role == RoleAdmin {
		return "", errors.New("invalid role filter")
	}
	return role, nil
}

func statusWord(code int) string {
	if code == http.StatusOK {
		return "ok"
	}
	return "degraded"
}

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

func parsePagination(pageStr, limitStr string) (int, int, error) {
	page := 1
	limit := defaultPageLimit
	if strings.TrimSpace(pageStr) != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil || p <= 0 {
			return 0, 0, errors.New("page must be a positive integer")
		}
		page = p
	}
	if strings.TrimSpace(limitStr) != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			return 0, 0, errors.New("limit must be a positive integer")
		}
		if l > maxPageLimit {
			l = maxPageLimit
		}
		limit = l
	}
	return page, limit, nil
}

func calcTotalPages(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// Placeholder dashboard content until assignments and events ship as real
// subsystems.
func placeholderActivities() []gin.H {
	now := time.Now()
	return []gin.H{
		{
			"id":          1,
			"type":        "assignment",
			"title":       "Math Assignment Due",
			"description": "Complete algebra problems 1-20",
			"date":        now,
			"status":      "pending",
		},
		{
			"id":          2,
			"type":        "announcement",
			"title":       "Class Schedule Update",
			"description": "Physics class moved to 2 PM",
			"date":        now.Add(-24 * time.Hour),
			"status":      "read",
		},
	}
}

func placeholderEvents() []gin.H {
	now := time.Now()
	return []gin.H{
		{
			"id":       1,
			"title":    "Math Quiz",
			"date":     now.Add(3 * 24 * time.Hour),
			"subject":  "Mathematics",
			"educator": "Dr. Smith",
		},
		{
			"id":       2,
			"title":    "Science Fair",
			"date":     now.Add(7 * 24 * time.Hour),
			"subject":  "Science",
			"educator": "Prof. Johnson",
		},
	}
}
