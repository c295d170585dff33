package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/ahmetcoskunkizilkaya/emoji-riddle/internal/dto"
	"github.com/ahmetcoskunkizilkaya/emoji-riddle/internal/models"
	"github.com/ahmetcoskunkizilkaya/emoji-riddle/internal/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrReportNotFound          = errors.New("report not found")
	ErrInvalidContentType      = errors.New("invalid content_type: must be user, post, comment or guess")
	ErrContentIDRequired       = errors.New("content_id is required")
	ErrReasonRequired          = errors.New("reason is required")
	ErrReportedContentNotFound = errors.New("reported content not found")
	ErrAlreadyReported         = errors.New("you already reported this")
	ErrInvalidReportStatus     = errors.New("invalid status: must be reviewed, actioned, or dismissed")
)

var BannedWords = []string{
	"fuck", "fucking", "fucker", "shit", "shitty", "bullshit",
	"ass", "asshole", "bastard", "bitch", "cunt",
	"nigger", "nigga", "chink", "spic", "kike", "faggot", "fag",
	"retard", "retarded", "tranny",
	"porn", "porno", "nude", "nudes",
	"spam", "scam", "scammer", "phishing", "malware",
}

// ModerationService screens player text (answers, guess comments) and
// stores reports against riddle posts, comments and players.
type ModerationService struct {
	db                  *gorm.DB
	bannedWordRegexps   []*regexp.Regexp
	urlPattern          *regexp.Regexp
	emailPattern        *regexp.Regexp
	phonePattern        *regexp.Regexp
	repeatedCharPattern *regexp.Regexp
	allCapsPattern      *regexp.Regexp
	compiled            bool
	mu                  sync.RWMutex
	checker             ContentChecker
}

func NewModerationService(db *gorm.DB) *ModerationService {
	ms := &ModerationService{db: db}
	ms.compilePatterns()
	return ms
}

func (ms *ModerationService) compilePatterns() {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.compiled {
		return
	}

	ms.bannedWordRegexps = make([]*regexp.Regexp, 0, len(BannedWords))
	for _, word := range BannedWords {
		pattern := `(?i)\b` + regexp.QuoteMeta(word) + `\b`
		re, err := regexp.Compile(pattern)
		if err == nil {
			ms.bannedWordRegexps = append(ms.bannedWordRegexps, re)
		}
	}

	ms.urlPattern = regexp.MustCompile(`(?i)(https?://\S+|www\.\S+\.\S+)`)
	ms.emailPattern = regexp.MustCompile(`(?i)\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)
	ms.phonePattern = regexp.MustCompile(`\d{3}[-.\s]?\d{3}[-.\s]?\d{4}|\(\d{3}\)\s*\d{3}[-.\s]?\d{4}`)
	ms.repeatedCharPattern = regexp.MustCompile(`(?i)(a{4,}|b{4,}|c{4,}|d{4,}|e{4,}|f{4,}|g{4,}|h{4,}|i{4,}|j{4,}|k{4,}|l{4,}|m{4,}|n{4,}|o{4,}|p{4,}|q{4,}|r{4,}|s{4,}|t{4,}|u{4,}|v{4,}|w{4,}|x{4,}|y{4,}|z{4,}|!{4,}|\?{4,}|\.{4,})`)
	ms.allCapsPattern = regexp.MustCompile(`[A-Z]{5,}`)
	ms.compiled = true
}

func (ms *ModerationService) FilterContent(text string) (bool, string) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	if text == "" {
		return true, ""
	}
	for _, re := range ms.bannedWordRegexps {
		if re.MatchString(text) {
			return false, "inappropriate_language"
		}
	}
	if ms.urlPattern.MatchString(text) {
		return false, "url_not_allowed"
	}
	if ms.emailPattern.MatchString(text) {
		return false, "contact_info_not_allowed"
	}
	if ms.phonePattern.MatchString(text) {
		return false, "contact_info_not_allowed"
	}
	if ms.repeatedCharPattern.MatchString(text) {
		return false, "spam_detected"
	}
	capsMatches := ms.allCapsPattern.FindAllString(text, -1)
	if len(capsMatches) > 2 {
		return false, "excessive_caps"
	}
	return true, ""
}

func (ms *ModerationService) ContainsProfanity(text string) bool {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	for _, re := range ms.bannedWordRegexps {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// GetRejectionMessage turns a FilterContent reason into player-facing text.
func (ms *ModerationService) GetRejectionMessage(reason string) string {
	messages := map[string]string{
		"inappropriate_language":   "Your response contains inappropriate language.",
		"url_not_allowed":          "URLs and web links are not allowed.",
		"contact_info_not_allowed": "Contact information is not allowed.",
		"spam_detected":            "Your response appears to be spam.",
		"excessive_caps":           "Please avoid using excessive capital letters.",
	}
	if msg, ok := messages[reason]; ok {
		return msg
	}
	return "Your response does not meet our content guidelines."
}

// Report content types. Guess reports use "<post id>:<guess>" as content id.
const (
	ReportUser    = "user"
	ReportPost    = "post"
	ReportComment = "comment"
	ReportGuess   = "guess"
)

var reportStatuses = map[string]bool{"reviewed": true, "actioned": true, "dismissed": true}

// ContentChecker tells whether reported game content exists. Content types it
// does not know about are reported as existing.
type ContentChecker interface {
	ContentExists(ctx context.Context, appID, contentType, contentID string) (bool, error)
}

// SetContentChecker makes CreateReport reject reports on missing content.
func (s *ModerationService) SetContentChecker(checker ContentChecker) {
	s.checker = checker
}

// CreateReport files a pending report. A reporter has at most one pending
// report per piece of content.
func (s *ModerationService) CreateReport(ctx context.Context, appID string, reporterID uuid.UUID, req *dto.CreateReportRequest) (*models.Report, error) {
	contentType := strings.ToLower(strings.TrimSpace(req.ContentType))
	contentID := strings.TrimSpace(req.ContentID)
	reason := strings.TrimSpace(req.Reason)
	switch contentType {
	case ReportUser, ReportPost, ReportComment, ReportGuess:
	default:
		return nil, ErrInvalidContentType
	}
	if contentID == "" {
		return nil, ErrContentIDRequired
	}
	if reason == "" {
		return nil, ErrReasonRequired
	}

	if s.checker != nil {
		exists, err := s.checker.ContentExists(ctx, appID, contentType, contentID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up reported %s: %w", contentType, err)
		}
		if !exists {
			return nil, ErrReportedContentNotFound
		}
	}

	db := s.db.WithContext(ctx)
	var pending int64
	if err := db.Model(&models.Report{}).Scopes(tenant.ForTenant(appID)).
		Where("reporter_id = ? AND content_type = ? AND content_id = ? AND status = ?", reporterID, contentType, contentID, "pending").
		Count(&pending).Error; err != nil {
		return nil, fmt.Errorf("failed to check reports: %w", err)
	}
	if pending > 0 {
		return nil, ErrAlreadyReported
	}

	report := models.Report{
		ID:          uuid.New(),
		AppID:       appID,
		ReporterID:  reporterID,
		ContentType: contentType,
		ContentID:   contentID,
		Reason:      reason,
		Status:      "pending",
	}
	if err := db.Create(&report).Error; err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}
	return &report, nil
}

// ReportFilter narrows ListReports. Empty fields match everything.
type ReportFilter struct {
	Status      string
	ContentType string
	Limit       int
	Offset      int
}

// ListReports returns one page of the installation's reports, newest first,
// and the total number matching the filter.
func (s *ModerationService) ListReports(appID string, f ReportFilter) ([]models.Report, int64, error) {
	var reports []models.Report
	var total int64

	query := s.db.Model(&models.Report{}).Scopes(tenant.ForTenant(appID))
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.ContentType != "" {
		query = query.Where("content_type = ?", f.ContentType)
	}
	query = query.Session(&gorm.Session{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("created_at DESC").Limit(f.Limit).Offset(f.Offset).Find(&reports).Error; err != nil {
		return nil, 0, err
	}
	return reports, total, nil
}

func (s *ModerationService) ActionReport(appID string, reportID uuid.UUID, req *dto.ActionReportRequest) error {
	if !reportStatuses[req.Status] {
		return ErrInvalidReportStatus
	}

	result := s.db.Model(&models.Report{}).
		Scopes(tenant.ForTenant(appID)).
		Where("id = ?", reportID).
		Updates(map[string]interface{}{
			"status":     req.Status,
			"admin_note": req.AdminNote,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrReportNotFound
	}
	return nil
}
