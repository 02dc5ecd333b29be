package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"placement-portal/backend/internal/model"
	"placement-portal/backend/internal/notify"
	"placement-portal/backend/internal/repository"
	"placement-portal/backend/pkg/redis"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		user.UserID = "user-" + user.Email
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) List(_ context.Context, role string, offset, limit int) ([]model.User, int64, error) {
	var result []model.User
	for _, u := range m.users {
		if role != "" && u.Role != role {
			continue
		}
		result = append(result, *u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Email < result[j].Email })
	return page(result, offset, limit), int64(len(result)), nil
}

// ── Mock StudentRepository ──

type mockStudentRepo struct {
	students map[string]*model.Student
	order    []string // 插入顺序
}

func newMockStudentRepo() *mockStudentRepo {
	return &mockStudentRepo{students: make(map[string]*model.Student)}
}

func (m *mockStudentRepo) add(id, name, dept string) *model.Student {
	st := &model.Student{
		StudentID:  id,
		Name:       name,
		RegNo:      "REG-" + id,
		Department: dept,
		Email:      id + "@college.test",
	}
	_ = m.Create(context.Background(), st)
	return st
}

func (m *mockStudentRepo) Create(_ context.Context, student *model.Student) error {
	if student.StudentID == "" {
		student.StudentID = "stu-" + student.RegNo
	}
	if _, ok := m.students[student.StudentID]; !ok {
		m.order = append(m.order, student.StudentID)
	}
	m.students[student.StudentID] = student
	return nil
}

func (m *mockStudentRepo) GetByID(_ context.Context, id string) (*model.Student, error) {
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStudentRepo) GetByRegNo(_ context.Context, regNo string) (*model.Student, error) {
	for _, s := range m.students {
		if s.RegNo == regNo {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStudentRepo) GetByIDs(_ context.Context, ids []string) ([]model.Student, error) {
	var result []model.Student
	for _, id := range ids {
		if s, ok := m.students[id]; ok {
			result = append(result, *s)
		}
	}
	return result, nil
}

func (m *mockStudentRepo) ListIDs(_ context.Context, batch string) ([]string, error) {
	var ids []string
	for _, id := range m.order {
		s, ok := m.students[id]
		if !ok {
			continue
		}
		if batch != "" && s.Batch != batch {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *mockStudentRepo) List(_ context.Context, filter repository.StudentFilter, offset, limit int) ([]model.Student, int64, error) {
	var result []model.Student
	for _, id := range m.order {
		s, ok := m.students[id]
		if !ok {
			continue
		}
		if filter.Department != "" && s.Department != filter.Department {
			continue
		}
		if filter.Batch != "" && s.Batch != filter.Batch {
			continue
		}
		if filter.Keyword != "" && !strings.Contains(s.Name, filter.Keyword) && !strings.Contains(s.RegNo, filter.Keyword) {
			continue
		}
		result = append(result, *s)
	}
	return page(result, offset, limit), int64(len(result)), nil
}

func (m *mockStudentRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.students, id)
	return nil
}

// ── Mock VenueRepository ──

type mockVenueRepo struct {
	venues map[string]*model.Venue
}

func newMockVenueRepo() *mockVenueRepo {
	return &mockVenueRepo{venues: make(map[string]*model.Venue)}
}

func (m *mockVenueRepo) Create(_ context.Context, venue *model.Venue) error {
	if venue.VenueID == "" {
		venue.VenueID = "venue-" + venue.Name
	}
	if venue.Status == "" {
		venue.Status = model.VenueStatusUnassigned
	}
	if venue.Version == 0 {
		venue.Version = 1
	}
	m.venues[venue.VenueID] = venue
	return nil
}

func (m *mockVenueRepo) GetByID(_ context.Context, id string) (*model.Venue, error) {
	if v, ok := m.venues[id]; ok {
		return v, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockVenueRepo) GetByIDs(_ context.Context, ids []string) ([]model.Venue, error) {
	var result []model.Venue
	for _, id := range ids {
		if v, ok := m.venues[id]; ok {
			result = append(result, *v)
		}
	}
	return result, nil
}

func (m *mockVenueRepo) List(_ context.Context, status string) ([]model.Venue, error) {
	var result []model.Venue
	for _, v := range m.venues {
		if status != "" && v.Status != status {
			continue
		}
		result = append(result, *v)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *mockVenueRepo) Update(_ context.Context, venue *model.Venue) error {
	venue.Version++
	m.venues[venue.VenueID] = venue
	return nil
}

func (m *mockVenueRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.venues, id)
	return nil
}

// ── Mock TrainingModuleRepository ──

type mockModuleRepo struct {
	modules map[string]*model.TrainingModule
	seq     int
}

func newMockModuleRepo() *mockModuleRepo {
	return &mockModuleRepo{modules: make(map[string]*model.TrainingModule)}
}

func (m *mockModuleRepo) Create(_ context.Context, module *model.TrainingModule, assignments []model.ModuleVenueAssignment) error {
	m.seq++
	if module.ModuleID == "" {
		module.ModuleID = fmt.Sprintf("module-%d", m.seq)
	}
	if module.Status == "" {
		module.Status = model.ModuleStatusActive
	}
	if module.Version == 0 {
		module.Version = 1
	}
	module.CreatedAt = time.Now()
	for i := range assignments {
		assignments[i].ModuleID = module.ModuleID
		assignments[i].AssignmentID = fmt.Sprintf("%s-a%d", module.ModuleID, i)
	}
	module.Assignments = append([]model.ModuleVenueAssignment(nil), assignments...)
	m.modules[module.ModuleID] = module
	return nil
}

func (m *mockModuleRepo) GetByID(_ context.Context, id string) (*model.TrainingModule, error) {
	if mod, ok := m.modules[id]; ok {
		return mod, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockModuleRepo) List(_ context.Context, status string, offset, limit int) ([]model.TrainingModule, int64, error) {
	var result []model.TrainingModule
	for _, mod := range m.modules {
		if status != "" && mod.Status != status {
			continue
		}
		result = append(result, *mod)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ModuleID < result[j].ModuleID })
	return page(result, offset, limit), int64(len(result)), nil
}

func (m *mockModuleRepo) Update(_ context.Context, module *model.TrainingModule) error {
	module.Version++
	m.modules[module.ModuleID] = module
	return nil
}

func (m *mockModuleRepo) ListVenueStudentIDs(_ context.Context, venueID string) ([]string, error) {
	var ids []string
	seen := make(map[string]bool)
	keys := make([]string, 0, len(m.modules))
	for k := range m.modules {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		mod := m.modules[k]
		if mod.Status != model.ModuleStatusActive {
			continue
		}
		for _, a := range mod.Assignments {
			if a.VenueID == venueID && !seen[a.StudentID] {
				seen[a.StudentID] = true
				ids = append(ids, a.StudentID)
			}
		}
	}
	return ids, nil
}

func (m *mockModuleRepo) ListByStudent(_ context.Context, studentID string) ([]model.TrainingModule, error) {
	var result []model.TrainingModule
	for _, mod := range m.modules {
		var own []model.ModuleVenueAssignment
		for _, a := range mod.Assignments {
			if a.StudentID == studentID {
				own = append(own, a)
			}
		}
		if len(own) == 0 {
			continue
		}
		cp := *mod
		cp.Assignments = own
		result = append(result, cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ModuleID < result[j].ModuleID })
	return result, nil
}

// ── Mock AttendanceRepository ──

type mockAttendanceRepo struct {
	records map[string]*model.AttendanceRecord // key: date|session|student
	upserts int
	err     error
}

func newMockAttendanceRepo() *mockAttendanceRepo {
	return &mockAttendanceRepo{records: make(map[string]*model.AttendanceRecord)}
}

func attendanceKey(date, session, studentID string) string {
	return date + "|" + session + "|" + studentID
}

func (m *mockAttendanceRepo) get(date, session, studentID string) (*model.AttendanceRecord, bool) {
	r, ok := m.records[attendanceKey(date, session, studentID)]
	return r, ok
}

func (m *mockAttendanceRepo) ListByKey(_ context.Context, date, session string, studentIDs []string) ([]model.AttendanceRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	var allow map[string]bool
	if studentIDs != nil {
		allow = make(map[string]bool, len(studentIDs))
		for _, id := range studentIDs {
			allow[id] = true
		}
	}
	var result []model.AttendanceRecord
	for _, r := range m.records {
		if r.Date.String() != date || r.Session != session {
			continue
		}
		if allow != nil && !allow[r.StudentID] {
			continue
		}
		result = append(result, *r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StudentID < result[j].StudentID })
	return result, nil
}

func (m *mockAttendanceRepo) ListByKeyForUpdate(ctx context.Context, date, session string, studentIDs []string) ([]model.AttendanceRecord, error) {
	return m.ListByKey(ctx, date, session, studentIDs)
}

func (m *mockAttendanceRepo) Upsert(_ context.Context, records []model.AttendanceRecord) error {
	if m.err != nil {
		return m.err
	}
	m.upserts++
	for i := range records {
		r := records[i]
		key := attendanceKey(r.Date.String(), r.Session, r.StudentID)
		if old, ok := m.records[key]; ok {
			r.AttendanceID = old.AttendanceID
			r.CreatedAt = old.CreatedAt
		} else {
			r.AttendanceID = "att-" + key
			r.CreatedAt = time.Now()
		}
		r.UpdatedAt = time.Now()
		m.records[key] = &r
	}
	return nil
}

func (m *mockAttendanceRepo) ListByDate(_ context.Context, date string) ([]model.AttendanceRecord, error) {
	var result []model.AttendanceRecord
	for _, r := range m.records {
		if r.Date.String() == date {
			result = append(result, *r)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Session != result[j].Session {
			return result[i].Session > result[j].Session // forenoon 在前
		}
		return result[i].StudentID < result[j].StudentID
	})
	return result, nil
}

func (m *mockAttendanceRepo) ListByVenue(_ context.Context, venueID string, from, to string) ([]model.AttendanceRecord, error) {
	var result []model.AttendanceRecord
	for _, r := range m.records {
		if r.VenueID == nil || *r.VenueID != venueID {
			continue
		}
		d := r.Date.String()
		if (from != "" && d < from) || (to != "" && d > to) {
			continue
		}
		result = append(result, *r)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date < result[j].Date
		}
		return result[i].StudentID < result[j].StudentID
	})
	return result, nil
}

func (m *mockAttendanceRepo) ListByStudent(_ context.Context, studentID string, from, to string) ([]model.AttendanceRecord, error) {
	var result []model.AttendanceRecord
	for _, r := range m.records {
		if r.StudentID != studentID {
			continue
		}
		d := r.Date.String()
		if (from != "" && d < from) || (to != "" && d > to) {
			continue
		}
		result = append(result, *r)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date < result[j].Date
		}
		return result[i].Session > result[j].Session
	})
	return result, nil
}

// ── Mock ExamScoreRepository ──

type mockExamScoreRepo struct {
	scores map[string]*model.ExamScore // key: module|student|exam
}

func newMockExamScoreRepo() *mockExamScoreRepo {
	return &mockExamScoreRepo{scores: make(map[string]*model.ExamScore)}
}

func (m *mockExamScoreRepo) Upsert(_ context.Context, score *model.ExamScore) error {
	key := fmt.Sprintf("%s|%s|%d", score.ModuleID, score.StudentID, score.ExamNumber)
	now := time.Now()
	score.UpdatedAt = now
	if old, ok := m.scores[key]; ok {
		old.Score, old.RecordedBy, old.UpdatedAt = score.Score, score.RecordedBy, now
		return nil
	}
	cp := *score
	cp.ScoreID = fmt.Sprintf("score-%d", len(m.scores)+1)
	cp.CreatedAt, cp.UpdatedAt = now, now
	m.scores[key] = &cp
	return nil
}

func (m *mockExamScoreRepo) ListByStudent(_ context.Context, studentID, moduleID string) ([]model.ExamScore, error) {
	var result []model.ExamScore
	for _, sc := range m.scores {
		if sc.StudentID != studentID || (moduleID != "" && sc.ModuleID != moduleID) {
			continue
		}
		result = append(result, *sc)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].ModuleID != result[j].ModuleID {
			return result[i].ModuleID < result[j].ModuleID
		}
		return result[i].ExamNumber < result[j].ExamNumber
	})
	return result, nil
}

func (m *mockExamScoreRepo) MaxExamNumber(_ context.Context, moduleID string) (int, error) {
	max := 0
	for _, sc := range m.scores {
		if sc.ModuleID == moduleID && sc.ExamNumber > max {
			max = sc.ExamNumber
		}
	}
	return max, nil
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct {
	items map[string]*model.AbsenceNotification
	order []string
	seq   int
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{items: make(map[string]*model.AbsenceNotification)}
}

func (m *mockNotificationRepo) CreateBatch(_ context.Context, items []model.AbsenceNotification) error {
	now := time.Now()
	for i := range items {
		m.seq++
		items[i].NotificationID = fmt.Sprintf("notif-%d", m.seq)
		items[i].CreatedAt = now
		items[i].UpdatedAt = now
		n := items[i]
		m.items[n.NotificationID] = &n
		m.order = append(m.order, n.NotificationID)
	}
	return nil
}

func claimableNotification(n *model.AbsenceNotification, staleBefore time.Time) bool {
	switch n.Status {
	case model.NotificationPending, model.NotificationFailed:
		return true
	case model.NotificationSending:
		return n.UpdatedAt.Before(staleBefore)
	}
	return false
}

func (m *mockNotificationRepo) retryable(maxAttempts int, staleBefore time.Time) []model.AbsenceNotification {
	var result []model.AbsenceNotification
	for _, id := range m.order {
		n := m.items[id]
		if !claimableNotification(n, staleBefore) || n.Attempts >= maxAttempts {
			continue
		}
		result = append(result, *n)
	}
	return result
}

func (m *mockNotificationRepo) ListRetryable(_ context.Context, date, session string, maxAttempts int, staleBefore time.Time) ([]model.AbsenceNotification, error) {
	var result []model.AbsenceNotification
	for _, n := range m.retryable(maxAttempts, staleBefore) {
		if n.Date.String() == date && n.Session == session {
			result = append(result, n)
		}
	}
	return result, nil
}

func (m *mockNotificationRepo) ListAllRetryable(_ context.Context, maxAttempts, limit int, staleBefore time.Time) ([]model.AbsenceNotification, error) {
	result := m.retryable(maxAttempts, staleBefore)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *mockNotificationRepo) Claim(_ context.Context, ids []string, staleBefore time.Time) ([]model.AbsenceNotification, error) {
	var claimed []model.AbsenceNotification
	for _, id := range ids {
		n, ok := m.items[id]
		if !ok || !claimableNotification(n, staleBefore) {
			continue
		}
		n.Status = model.NotificationSending
		n.UpdatedAt = time.Now()
		claimed = append(claimed, *n)
	}
	return claimed, nil
}

func (m *mockNotificationRepo) MarkSent(_ context.Context, ids []string, at time.Time) error {
	for _, id := range ids {
		if n, ok := m.items[id]; ok {
			n.Status = model.NotificationSent
			n.Attempts++
			n.LastError = ""
			n.SentAt = &at
			n.UpdatedAt = at
		}
	}
	return nil
}

func (m *mockNotificationRepo) MarkFailed(_ context.Context, ids []string, reason string) error {
	for _, id := range ids {
		if n, ok := m.items[id]; ok {
			n.Status = model.NotificationFailed
			n.Attempts++
			n.LastError = reason
			n.UpdatedAt = time.Now()
		}
	}
	return nil
}

func (m *mockNotificationRepo) countByStatus(status string) int {
	count := 0
	for _, n := range m.items {
		if n.Status == status {
			count++
		}
	}
	return count
}

// ── Mock SystemConfigRepository ──

type mockSystemConfigRepo struct {
	cfg *model.SystemConfig
}

func newMockSystemConfigRepo() *mockSystemConfigRepo {
	return &mockSystemConfigRepo{cfg: &model.SystemConfig{
		Singleton:          true,
		DefaultSession:     model.SessionForenoon,
		EmailNotifications: true,
		AutoMarkAbsent:     false,
	}}
}

func (m *mockSystemConfigRepo) Get(_ context.Context) (*model.SystemConfig, error) {
	if m.cfg == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *m.cfg
	return &cp, nil
}

func (m *mockSystemConfigRepo) Update(_ context.Context, cfg *model.SystemConfig) error {
	cp := *cfg
	cp.UpdatedAt = time.Now()
	m.cfg = &cp
	return nil
}

// ── Mock Dispatcher / Locker ──

type mockDispatcher struct {
	mu       sync.Mutex
	sent     []notify.AbsenceNotice
	failFrom int // >=0 时从第 failFrom 条开始失败；-1 表示全部成功
	calls    int
}

func newMockDispatcher() *mockDispatcher {
	return &mockDispatcher{failFrom: -1}
}

func (d *mockDispatcher) Dispatch(_ context.Context, notices []notify.AbsenceNotice) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	delivered := make([]string, 0, len(notices))
	for i, n := range notices {
		if d.failFrom >= 0 && i >= d.failFrom {
			return delivered, fmt.Errorf("broker unavailable")
		}
		d.sent = append(d.sent, n)
		delivered = append(delivered, n.NotificationID)
	}
	return delivered, nil
}

// busyLocker 始终返回锁已被占用
type busyLocker struct{}

func (busyLocker) Acquire(_ context.Context, _ string, _ time.Duration) (func(), error) {
	return nil, redis.ErrLockNotAcquired
}

// ── 测试装配 ──

type mockRepos struct {
	user         *mockUserRepo
	student      *mockStudentRepo
	venue        *mockVenueRepo
	module       *mockModuleRepo
	attendance   *mockAttendanceRepo
	notification *mockNotificationRepo
	systemConfig *mockSystemConfigRepo
	examScore    *mockExamScoreRepo
}

func newMockRepos() (*mockRepos, *repository.Repository) {
	m := &mockRepos{
		user:         newMockUserRepo(),
		student:      newMockStudentRepo(),
		venue:        newMockVenueRepo(),
		module:       newMockModuleRepo(),
		attendance:   newMockAttendanceRepo(),
		notification: newMockNotificationRepo(),
		systemConfig: newMockSystemConfigRepo(),
		examScore:    newMockExamScoreRepo(),
	}
	repo := &repository.Repository{
		User:         m.user,
		Student:      m.student,
		Venue:        m.venue,
		Module:       m.module,
		Attendance:   m.attendance,
		Notification: m.notification,
		SystemConfig: m.systemConfig,
		ExamScore:    m.examScore,
	}
	return m, repo
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
