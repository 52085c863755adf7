// Package apitest serves an in-memory stand-in for the jobs REST API. It
// follows the real server's filtering, sorting, validation and response
// shapes closely enough to drive the client end to end in tests.
package apitest

import (
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rsilvagit/go-jobs/internal/model"
)

// Request is one call the server received.
type Request struct {
	Method string
	Path   string
	Query  url.Values
}

func (r Request) String() string {
	if len(r.Query) == 0 {
		return r.Method + " " + r.Path
	}
	return r.Method + " " + r.Path + "?" + r.Query.Encode()
}

type failure struct {
	status  int
	message string
}

// Server is a fake jobs API. The zero value is not usable; call New.
type Server struct {
	mu       sync.Mutex
	jobs     []model.Job
	nextID   int
	requests []Request
	failures map[string][]failure
	now      func() time.Time
	engine   *gin.Engine
}

type jobRequest struct {
	Title       *string  `json:"title"`
	Company     *string  `json:"company"`
	Location    *string  `json:"location"`
	JobType     *string  `json:"job_type"`
	Tags        []string `json:"tags"`
	PostingDate *string  `json:"posting_date"`
}

// New returns an empty fake API.
func New() *Server {
	gin.SetMode(gin.TestMode)

	s := &Server{
		nextID:   1,
		failures: make(map[string][]failure),
		now:      func() time.Time { return time.Now().UTC() },
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.record, s.injectFailures)
	r.GET("/health", s.health)
	r.GET("/jobs", s.listJobs)
	r.POST("/jobs", s.createJob)
	r.GET("/jobs/:id", s.getJob)
	r.PUT("/jobs/:id", s.updateJob)
	r.PATCH("/jobs/:id", s.updateJob)
	r.DELETE("/jobs/:id", s.deleteJob)
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Endpoint not found"})
	})
	s.engine = r
	return s
}

// Handler exposes the fake as an http.Handler, e.g. for httptest.NewServer.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// SetClock replaces the server's notion of "now" used for default dates.
func (s *Server) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Seed stores jobs as if they had been created, assigning ids in order.
func (s *Server) Seed(jobs ...model.Job) []model.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Job, 0, len(jobs))
	for _, j := range jobs {
		j.ID = s.nextID
		s.nextID++
		if j.JobType == "" {
			j.JobType = model.JobTypeFullTime
		}
		if j.Tags == nil {
			j.Tags = []string{}
		}
		if j.PostingDate.IsZero() {
			j.PostingDate = model.Timestamp{Time: s.now()}
		}
		j.CreatedAt = model.Timestamp{Time: s.now()}
		j.UpdatedAt = j.CreatedAt
		s.jobs = append(s.jobs, j)
		out = append(out, j)
	}
	return out
}

// Jobs returns a copy of the stored collection in id order.
func (s *Server) Jobs() []model.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Job(nil), s.jobs...)
}

// Requests returns every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// ResetRequests forgets the recorded requests.
func (s *Server) ResetRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

// FailNext makes the next request matching method and path answer status
// with {"error": message}. An empty message sends an empty body.
func (s *Server) FailNext(method, path string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + path
	s.failures[key] = append(s.failures[key], failure{status: status, message: message})
}

func (s *Server) record(c *gin.Context) {
	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method: c.Request.Method,
		Path:   c.Request.URL.Path,
		Query:  c.Request.URL.Query(),
	})
	s.mu.Unlock()
	c.Next()
}

func (s *Server) injectFailures(c *gin.Context) {
	key := c.Request.Method + " " + c.Request.URL.Path

	s.mu.Lock()
	queue := s.failures[key]
	var f *failure
	if len(queue) > 0 {
		f = &queue[0]
		s.failures[key] = queue[1:]
	}
	s.mu.Unlock()

	if f == nil {
		c.Next()
		return
	}
	if f.message == "" {
		c.AbortWithStatus(f.status)
		return
	}
	c.AbortWithStatusJSON(f.status, gin.H{"error": f.message})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "message": "Job Listings API is running"})
}

func (s *Server) listJobs(c *gin.Context) {
	jobType := c.Query("job_type")
	location := strings.ToLower(c.Query("location"))
	company := strings.ToLower(c.Query("company"))
	tag := strings.ToLower(c.Query("tag"))

	s.mu.Lock()
	matched := []model.Job{}
	for _, j := range s.jobs {
		if jobType != "" && string(j.JobType) != jobType {
			continue
		}
		if location != "" && !strings.Contains(strings.ToLower(j.Location), location) {
			continue
		}
		if company != "" && !strings.Contains(strings.ToLower(j.Company), company) {
			continue
		}
		if tag != "" && !strings.Contains(strings.ToLower(strings.Join(j.Tags, ",")), tag) {
			continue
		}
		matched = append(matched, j)
	}
	s.mu.Unlock()

	sortJobs(matched, c.DefaultQuery("sort", "posting_date_desc"))

	c.JSON(http.StatusOK, gin.H{
		"jobs":         matched,
		"total":        len(matched),
		"pages":        1,
		"current_page": 1,
		"per_page":     len(matched),
	})
}

func sortJobs(jobs []model.Job, order string) {
	var less func(a, b model.Job) bool
	switch order {
	case "posting_date_asc":
		less = func(a, b model.Job) bool { return a.PostingDate.Before(b.PostingDate.Time) }
	case "title_asc":
		less = func(a, b model.Job) bool { return a.Title < b.Title }
	case "title_desc":
		less = func(a, b model.Job) bool { return a.Title > b.Title }
	case "company_asc":
		less = func(a, b model.Job) bool { return a.Company < b.Company }
	case "company_desc":
		less = func(a, b model.Job) bool { return a.Company > b.Company }
	case "posting_date_desc":
		less = func(a, b model.Job) bool { return a.PostingDate.After(b.PostingDate.Time) }
	default:
		return
	}
	sort.SliceStable(jobs, func(i, k int) bool { return less(jobs[i], jobs[k]) })
}

func (s *Server) getJob(c *gin.Context) {
	id, ok := jobID(c)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(id)
	if idx < 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}
	c.JSON(http.StatusOK, s.jobs[idx])
}

func (s *Server) createJob(c *gin.Context) {
	var req jobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No JSON data provided"})
		return
	}
	if errs := validate(req, true); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": errs})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	job := model.Job{
		ID:          s.nextID,
		Title:       strings.TrimSpace(*req.Title),
		Company:     strings.TrimSpace(*req.Company),
		Location:    strings.TrimSpace(*req.Location),
		JobType:     model.JobTypeFullTime,
		Tags:        nonNil(req.Tags),
		PostingDate: model.Timestamp{Time: now},
		CreatedAt:   model.Timestamp{Time: now},
		UpdatedAt:   model.Timestamp{Time: now},
	}
	if req.JobType != nil {
		job.JobType = model.JobType(*req.JobType)
	}
	if req.PostingDate != nil && *req.PostingDate != "" {
		ts, _ := model.ParseTimestamp(*req.PostingDate)
		job.PostingDate = ts
	}
	s.nextID++
	s.jobs = append(s.jobs, job)

	c.JSON(http.StatusCreated, gin.H{"message": "Job created successfully", "data": job})
}

func (s *Server) updateJob(c *gin.Context) {
	id, ok := jobID(c)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}

	var req jobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No JSON data provided"})
		return
	}
	if errs := validate(req, false); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": errs})
		return
	}

	job := s.jobs[idx]
	if req.Title != nil && strings.TrimSpace(*req.Title) != "" {
		job.Title = strings.TrimSpace(*req.Title)
	}
	if req.Company != nil && strings.TrimSpace(*req.Company) != "" {
		job.Company = strings.TrimSpace(*req.Company)
	}
	if req.Location != nil && strings.TrimSpace(*req.Location) != "" {
		job.Location = strings.TrimSpace(*req.Location)
	}
	if req.JobType != nil {
		job.JobType = model.JobType(*req.JobType)
	}
	if req.Tags != nil {
		job.Tags = req.Tags
	}
	if req.PostingDate != nil && *req.PostingDate != "" {
		ts, _ := model.ParseTimestamp(*req.PostingDate)
		job.PostingDate = ts
	}
	job.UpdatedAt = model.Timestamp{Time: s.now()}
	s.jobs[idx] = job

	c.JSON(http.StatusOK, gin.H{"message": "Job updated successfully", "data": job})
}

func (s *Server) deleteJob(c *gin.Context) {
	id, ok := jobID(c)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}
	s.jobs = append(s.jobs[:idx], s.jobs[idx+1:]...)
	c.JSON(http.StatusOK, gin.H{"message": "Job deleted successfully"})
}

func (s *Server) indexOf(id int) int {
	for i, j := range s.jobs {
		if j.ID == id {
			return i
		}
	}
	return -1
}

func jobID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Endpoint not found"})
		return 0, false
	}
	return id, true
}

func validate(req jobRequest, requireAll bool) []string {
	var errs []string
	if requireAll {
		for _, f := range []struct {
			name  string
			value *string
		}{
			{"title", req.Title},
			{"company", req.Company},
			{"location", req.Location},
		} {
			if f.value == nil || strings.TrimSpace(*f.value) == "" {
				errs = append(errs, f.name+" is required and cannot be empty")
			}
		}
	}
	if req.JobType != nil && !model.JobType(*req.JobType).Valid() {
		errs = append(errs, "job_type must be one of: Full-time, Part-time, Contract, Internship, Freelance")
	}
	if req.PostingDate != nil && *req.PostingDate != "" {
		if _, err := model.ParseTimestamp(*req.PostingDate); err != nil {
			errs = append(errs, "posting_date must be in ISO format (YYYY-MM-DDTHH:MM:SS)")
		}
	}
	return errs
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
