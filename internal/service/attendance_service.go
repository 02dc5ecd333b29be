package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"placement-portal/backend/internal/dto"
	"placement-portal/backend/internal/model"
	"placement-portal/backend/internal/notify"
	"placement-portal/backend/internal/repository"
	pkgerrors "placement-portal/backend/pkg/errors"
	"placement-portal/backend/pkg/metrics"
	"placement-portal/backend/pkg/redis"
	"placement-portal/backend/pkg/validate"
)

// ── 考勤模块业务错误 ──

var (
	ErrAttendanceKeyBusy   = errors.New("该日期时段的考勤正在被其他人提交，请稍后重试")
	ErrAttendanceForbidden = errors.New("只能操作本人负责场地的考勤")
	ErrStaffWithoutVenue   = errors.New("当前账号未分配场地")
)

// 投递状态
const (
	DispatchNone     = "none"
	DispatchSent     = "sent"
	DispatchPartial  = "partial"
	DispatchFailed   = "failed"
	DispatchDisabled = "disabled"
)

// maxNotifyAttempts 单条缺勤通知的最大投递次数
const maxNotifyAttempts = 5

// retryBatchSize 定时重投每轮最多处理的通知数
const retryBatchSize = 200

// claimLease 认领后超过该时长仍为 sending 的通知视为投递方已中断，可被重新认领
const claimLease = 5 * time.Minute

// AttendanceService 考勤业务接口
type AttendanceService interface {
	Submit(ctx context.Context, auth AuthContext, req *dto.SubmitAttendanceRequest) (*dto.SubmitAttendanceResponse, error)
	GetExisting(ctx context.Context, auth AuthContext, q *dto.AttendanceKeyQuery) (*dto.AttendanceExistingResponse, error)
	Summary(ctx context.Context, auth AuthContext, q *dto.AttendanceKeyQuery) (*dto.AttendanceSummaryResponse, error)
	History(ctx context.Context, auth AuthContext, q *dto.AttendanceHistoryQuery) (*dto.AttendanceHistoryResponse, error)
	RetryNotifications(ctx context.Context, req *dto.RetryNotificationsRequest) (*dto.RetryNotificationsResponse, error)
	RetryPending(ctx context.Context) (*dto.RetryNotificationsResponse, error)
}

type attendanceService struct {
	repo       *repository.Repository
	locker     redis.Locker
	dispatcher notify.Dispatcher
	lockTTL    time.Duration
	logger     *zap.Logger
}

// NewAttendanceService 创建 AttendanceService 实例
func NewAttendanceService(
	repo *repository.Repository,
	locker redis.Locker,
	dispatcher notify.Dispatcher,
	lockTTL time.Duration,
	logger *zap.Logger,
) AttendanceService {
	return &attendanceService{
		repo:       repo,
		locker:     locker,
		dispatcher: dispatcher,
		lockTTL:    lockTTL,
		logger:     logger,
	}
}

// ────────────────────── Submit ──────────────────────

// Submit 读取 → 合并 → 写入在 (date, session) 锁与数据库事务内完成；
// 缺勤通知在事务提交后投递，投递失败不回滚考勤。
func (s *attendanceService) Submit(ctx context.Context, auth AuthContext, req *dto.SubmitAttendanceRequest) (*dto.SubmitAttendanceResponse, error) {
	resp, err := s.submit(ctx, auth, req)
	switch {
	case err == nil:
		metrics.AttendanceSubmissions.WithLabelValues("ok").Inc()
	case errors.Is(err, ErrAttendanceKeyBusy):
		metrics.AttendanceSubmissions.WithLabelValues("busy").Inc()
	default:
		if _, ok := pkgerrors.AsValidation(err); ok {
			metrics.AttendanceSubmissions.WithLabelValues("invalid").Inc()
		} else {
			metrics.AttendanceSubmissions.WithLabelValues("error").Inc()
		}
	}
	return resp, err
}

func (s *attendanceService) submit(ctx context.Context, auth AuthContext, req *dto.SubmitAttendanceRequest) (*dto.SubmitAttendanceResponse, error) {
	if err := validateKey(req.Date, req.Session); err != nil {
		return nil, err
	}
	auth, err := s.currentAuth(ctx, auth)
	if err != nil {
		return nil, err
	}
	venueID, err := resolveVenue(auth, req.VenueID)
	if err != nil {
		return nil, err
	}
	scope, err := s.studentScope(ctx, venueID)
	if err != nil {
		return nil, err
	}

	sysCfg, err := s.repo.SystemConfig.Get(ctx)
	if err != nil {
		s.logger.Error("查询系统配置失败", zap.Error(err))
		return nil, err
	}
	policy := reconcilePolicy(sysCfg)

	incoming := make([]AttendanceEntry, 0, len(req.Entries))
	for _, e := range req.Entries {
		incoming = append(incoming, AttendanceEntry{
			StudentID: e.StudentID,
			Status:    StatusFromFlags(e.Present, e.OnDuty),
		})
	}

	result, outbox, err := s.mergeLocked(ctx, auth, req.Date, req.Session, venueID, scope, incoming, policy)
	if err != nil {
		return nil, err
	}

	resp := &dto.SubmitAttendanceResponse{
		Date:     req.Date,
		Session:  req.Session,
		Total:    len(result.Merged),
		Changed:  result.Changed,
		Notified: result.ToNotify,
	}
	for _, st := range result.Merged {
		switch st.Status {
		case model.AttendancePresent:
			resp.Present++
		case model.AttendanceAbsent:
			resp.Absent++
		case model.AttendanceOnDuty:
			resp.OnDuty++
		}
	}

	switch {
	case !policy.NotificationsEnabled:
		resp.DispatchStatus = DispatchDisabled
	case len(outbox) == 0:
		resp.DispatchStatus = DispatchNone
	default:
		report := s.claimAndDeliver(ctx, outbox)
		resp.DispatchStatus = report.status()
	}

	s.logger.Info("考勤已提交",
		zap.String("date", req.Date),
		zap.String("session", req.Session),
		zap.String("venue_id", venueID),
		zap.String("marked_by", auth.UserID),
		zap.Int("changed", len(result.Changed)),
		zap.Int("notified", len(result.ToNotify)),
		zap.String("dispatch", resp.DispatchStatus),
	)
	return resp, nil
}

// mergeLocked 持锁执行合并，返回合并结果与本次写入的发件箱记录
func (s *attendanceService) mergeLocked(
	ctx context.Context,
	auth AuthContext,
	date, session, venueID string,
	scope []string,
	incoming []AttendanceEntry,
	policy ReconcilePolicy,
) (*ReconcileResult, []model.AbsenceNotification, error) {
	release, err := s.locker.Acquire(ctx, lockKey(date, session), s.lockTTL)
	if err != nil {
		if errors.Is(err, redis.ErrLockNotAcquired) {
			return nil, nil, ErrAttendanceKeyBusy
		}
		s.logger.Error("获取考勤锁失败", zap.String("date", date), zap.String("session", session), zap.Error(err))
		return nil, nil, err
	}
	defer release()

	var (
		result *ReconcileResult
		outbox []model.AbsenceNotification
	)

	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		rows, err := txRepo.Attendance.ListByKeyForUpdate(ctx, date, session, scope)
		if err != nil {
			return err
		}

		prior := make(map[string]model.AttendanceRecord, len(rows))
		existing := make(map[string]AttendanceState, len(rows))
		for _, r := range rows {
			prior[r.StudentID] = r
			existing[r.StudentID] = AttendanceState{Status: r.Status, Notified: r.Notified}
		}

		result, err = ReconcileAttendance(existing, incoming, scope, policy)
		if err != nil {
			return err
		}

		now := time.Now()
		notifySet := make(map[string]bool, len(result.ToNotify))
		for _, id := range result.ToNotify {
			notifySet[id] = true
		}

		records := make([]model.AttendanceRecord, 0, len(result.Merged))
		written := make(map[string]bool, len(result.Merged))
		for _, id := range scope {
			st, ok := result.Merged[id]
			if !ok || written[id] {
				continue
			}
			written[id] = true
			rec := model.AttendanceRecord{
				Date:      model.Date(date),
				Session:   session,
				StudentID: id,
				Status:    st.Status,
				Notified:  st.Notified,
				MarkedBy:  stringPtr(auth.UserID),
			}
			old, hadPrior := prior[id]
			switch {
			case notifySet[id]:
				rec.NotifiedAt = &now
			case st.Notified && hadPrior:
				rec.NotifiedAt = old.NotifiedAt
			}
			if venueID != "" {
				rec.VenueID = stringPtr(venueID)
			} else if hadPrior {
				rec.VenueID = old.VenueID
			}
			records = append(records, rec)
		}

		if err := txRepo.Attendance.Upsert(ctx, records); err != nil {
			return err
		}

		for _, id := range result.ToNotify {
			outbox = append(outbox, model.AbsenceNotification{
				StudentID: id,
				Date:      model.Date(date),
				Session:   session,
				Status:    model.NotificationPending,
			})
		}
		return txRepo.Notification.CreateBatch(ctx, outbox)
	})
	if err != nil {
		if _, ok := pkgerrors.AsValidation(err); !ok {
			s.logger.Error("考勤合并失败", zap.String("date", date), zap.String("session", session), zap.Error(err))
		}
		return nil, nil, err
	}

	return result, outbox, nil
}

// ────────────────────── GetExisting ──────────────────────

func (s *attendanceService) GetExisting(ctx context.Context, auth AuthContext, q *dto.AttendanceKeyQuery) (*dto.AttendanceExistingResponse, error) {
	rows, _, err := s.loadKey(ctx, auth, q)
	if err != nil {
		return nil, err
	}

	resp := &dto.AttendanceExistingResponse{
		Date:    q.Date,
		Session: q.Session,
		Records: make(map[string]dto.AttendanceStatusResponse, len(rows)),
	}
	for _, r := range rows {
		resp.Records[r.StudentID] = dto.AttendanceStatusResponse{
			Present:  r.Status == model.AttendancePresent,
			OnDuty:   r.Status == model.AttendanceOnDuty,
			Notified: r.Notified,
			Status:   r.Status,
		}
	}
	return resp, nil
}

// ────────────────────── Summary ──────────────────────

// Summary 对已记录的考勤按院系汇总；未记录的学生不计入
func (s *attendanceService) Summary(ctx context.Context, auth AuthContext, q *dto.AttendanceKeyQuery) (*dto.AttendanceSummaryResponse, error) {
	rows, scope, err := s.loadKey(ctx, auth, q)
	if err != nil {
		return nil, err
	}

	// 有场地范围时按名单顺序，院系首次出现顺序因此稳定
	if scope != nil {
		order := make(map[string]int, len(scope))
		for i, id := range scope {
			if _, ok := order[id]; !ok {
				order[id] = i
			}
		}
		sort.SliceStable(rows, func(i, j int) bool {
			return order[rows[i].StudentID] < order[rows[j].StudentID]
		})
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.StudentID)
	}
	students, err := s.repo.Student.GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("查询学生失败", zap.Error(err))
		return nil, err
	}
	dept := make(map[string]string, len(students))
	for _, st := range students {
		dept[st.StudentID] = st.Department
	}

	input := make([]StudentAttendanceStatus, 0, len(rows))
	for _, r := range rows {
		input = append(input, StudentAttendanceStatus{
			StudentID:  r.StudentID,
			Status:     r.Status,
			Department: dept[r.StudentID],
		})
	}
	summary := AggregateAttendance(input)

	resp := &dto.AttendanceSummaryResponse{
		Date:          q.Date,
		Session:       q.Session,
		PerDepartment: make([]dto.DepartmentAttendanceResponse, 0, len(summary.PerDepartment)),
		Totals:        toDepartmentAttendanceResponse(summary.Totals),
	}
	for _, d := range summary.PerDepartment {
		resp.PerDepartment = append(resp.PerDepartment, toDepartmentAttendanceResponse(d))
	}
	return resp, nil
}

// ────────────────────── History ──────────────────────

// History 场地考勤历史：按日期倒序，每日分上午 / 下午，按状态分组
func (s *attendanceService) History(ctx context.Context, auth AuthContext, q *dto.AttendanceHistoryQuery) (*dto.AttendanceHistoryResponse, error) {
	auth, err := s.currentAuth(ctx, auth)
	if err != nil {
		return nil, err
	}
	venueID, err := resolveVenue(auth, q.VenueID)
	if err != nil {
		return nil, err
	}
	if venueID == "" {
		return nil, pkgerrors.NewValidationError("venue_id", "查询考勤历史必须指定场地")
	}
	if err := s.ensureVenue(ctx, venueID); err != nil {
		return nil, err
	}

	rows, err := s.repo.Attendance.ListByVenue(ctx, venueID, q.From, q.To)
	if err != nil {
		s.logger.Error("查询考勤历史失败", zap.String("venue_id", venueID), zap.Error(err))
		return nil, err
	}

	resp := &dto.AttendanceHistoryResponse{VenueID: venueID, Days: []dto.AttendanceDayResponse{}}
	dayIndex := make(map[string]int)
	for _, r := range rows {
		date := r.Date.String()
		i, ok := dayIndex[date]
		if !ok {
			i = len(resp.Days)
			dayIndex[date] = i
			resp.Days = append(resp.Days, dto.AttendanceDayResponse{Date: date})
		}
		day := &resp.Days[i]

		var bucket *dto.SessionBucket
		switch r.Session {
		case model.SessionForenoon:
			if day.Forenoon == nil {
				day.Forenoon = newSessionBucket()
			}
			bucket = day.Forenoon
		case model.SessionAfternoon:
			if day.Afternoon == nil {
				day.Afternoon = newSessionBucket()
			}
			bucket = day.Afternoon
		default:
			continue
		}

		brief := dto.StudentBrief{ID: r.StudentID}
		if r.Student != nil {
			brief.Name = r.Student.Name
			brief.RegNo = r.Student.RegNo
			brief.Department = r.Student.Department
		}
		switch r.Status {
		case model.AttendancePresent:
			bucket.Present = append(bucket.Present, brief)
		case model.AttendanceAbsent:
			bucket.Absent = append(bucket.Absent, brief)
		case model.AttendanceOnDuty:
			bucket.OD = append(bucket.OD, brief)
		}
	}

	// 仓储按日期倒序返回；这里再排一次以不依赖存储顺序
	sort.SliceStable(resp.Days, func(i, j int) bool {
		return resp.Days[i].Date > resp.Days[j].Date
	})
	return resp, nil
}

// ────────────────────── RetryNotifications ──────────────────────

// RetryNotifications 重新投递某考勤键下待发送 / 失败的通知，不重新合并考勤
func (s *attendanceService) RetryNotifications(ctx context.Context, req *dto.RetryNotificationsRequest) (*dto.RetryNotificationsResponse, error) {
	if err := validateKey(req.Date, req.Session); err != nil {
		return nil, err
	}
	items, err := s.repo.Notification.ListRetryable(ctx, req.Date, req.Session, maxNotifyAttempts, time.Now().Add(-claimLease))
	if err != nil {
		s.logger.Error("查询待重投通知失败", zap.Error(err))
		return nil, err
	}
	return s.claimAndDeliver(ctx, items).response(), nil
}

// RetryPending 定时任务：重投全部待发送 / 失败的通知
func (s *attendanceService) RetryPending(ctx context.Context) (*dto.RetryNotificationsResponse, error) {
	items, err := s.repo.Notification.ListAllRetryable(ctx, maxNotifyAttempts, retryBatchSize, time.Now().Add(-claimLease))
	if err != nil {
		s.logger.Error("查询待重投通知失败", zap.Error(err))
		return nil, err
	}
	return s.claimAndDeliver(ctx, items).response(), nil
}

// ── 投递 ──

type deliveryReport struct {
	attempted int
	sent      int
	failed    int
}

func (r deliveryReport) status() string {
	switch {
	case r.attempted == 0:
		return DispatchNone
	case r.failed == 0:
		return DispatchSent
	case r.sent == 0:
		return DispatchFailed
	default:
		return DispatchPartial
	}
}

func (r deliveryReport) response() *dto.RetryNotificationsResponse {
	return &dto.RetryNotificationsResponse{Attempted: r.attempted, Sent: r.sent, Failed: r.failed}
}

// claimAndDeliver 先认领再投递；已被其他投递方认领的记录直接跳过
func (s *attendanceService) claimAndDeliver(ctx context.Context, items []model.AbsenceNotification) deliveryReport {
	if len(items) == 0 {
		return deliveryReport{}
	}
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.NotificationID)
	}
	claimed, err := s.repo.Notification.Claim(ctx, ids, time.Now().Add(-claimLease))
	if err != nil {
		s.logger.Error("认领缺勤通知失败", zap.Error(err))
		return deliveryReport{attempted: len(items), failed: len(items)}
	}
	if skipped := len(items) - len(claimed); skipped > 0 {
		s.logger.Debug("部分通知已被其他投递方认领", zap.Int("skipped", skipped))
	}
	return s.deliver(ctx, claimed)
}

// deliver 投递已认领的发件箱记录并回写状态；回写失败只记录日志，租期过后重新认领
func (s *attendanceService) deliver(ctx context.Context, items []model.AbsenceNotification) deliveryReport {
	report := deliveryReport{attempted: len(items)}
	if len(items) == 0 {
		return report
	}

	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.StudentID)
	}
	students, err := s.repo.Student.GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("查询通知学生信息失败", zap.Error(err))
	}
	byID := make(map[string]*model.Student, len(students))
	for i := range students {
		byID[students[i].StudentID] = &students[i]
	}

	notices := make([]notify.AbsenceNotice, 0, len(items))
	for _, it := range items {
		n := notify.AbsenceNotice{
			NotificationID: it.NotificationID,
			StudentID:      it.StudentID,
			Date:           it.Date.String(),
			Session:        it.Session,
		}
		if st, ok := byID[it.StudentID]; ok {
			n.Name = st.Name
			n.Email = st.Email
		}
		notices = append(notices, n)
	}

	delivered, dispatchErr := s.dispatcher.Dispatch(ctx, notices)

	ok := make(map[string]bool, len(delivered))
	for _, id := range delivered {
		ok[id] = true
	}
	var failedIDs []string
	for _, it := range items {
		if !ok[it.NotificationID] {
			failedIDs = append(failedIDs, it.NotificationID)
		}
	}
	report.sent = len(delivered)
	report.failed = len(failedIDs)

	if err := s.repo.Notification.MarkSent(ctx, delivered, time.Now()); err != nil {
		s.logger.Error("回写通知发送状态失败", zap.Error(err))
	}
	if len(failedIDs) > 0 {
		reason := "未交付"
		if dispatchErr != nil {
			reason = dispatchErr.Error()
		}
		if err := s.repo.Notification.MarkFailed(ctx, failedIDs, reason); err != nil {
			s.logger.Error("回写通知失败状态失败", zap.Error(err))
		}
		s.logger.Warn("部分缺勤通知投递失败", zap.Int("failed", len(failedIDs)), zap.Error(dispatchErr))
	}

	metrics.AbsenceNotifications.WithLabelValues("sent").Add(float64(report.sent))
	metrics.AbsenceNotifications.WithLabelValues("failed").Add(float64(report.failed))
	return report
}

// ── 内部辅助方法 ──

// loadKey 读取某考勤键下当前身份可见的记录；scope 为 nil 表示全部学生
func (s *attendanceService) loadKey(ctx context.Context, auth AuthContext, q *dto.AttendanceKeyQuery) ([]model.AttendanceRecord, []string, error) {
	if err := validateKey(q.Date, q.Session); err != nil {
		return nil, nil, err
	}
	auth, err := s.currentAuth(ctx, auth)
	if err != nil {
		return nil, nil, err
	}
	venueID, err := resolveVenue(auth, q.VenueID)
	if err != nil {
		return nil, nil, err
	}

	var scope []string
	if venueID != "" {
		if scope, err = s.studentScope(ctx, venueID); err != nil {
			return nil, nil, err
		}
	}

	rows, err := s.repo.Attendance.ListByKey(ctx, q.Date, q.Session, scope)
	if err != nil {
		s.logger.Error("查询考勤失败", zap.String("date", q.Date), zap.String("session", q.Session), zap.Error(err))
		return nil, nil, err
	}
	return rows, scope, nil
}

// studentScope 考勤名单：指定场地时为该场地在进行中模块下的学生，否则为全部学生
func (s *attendanceService) studentScope(ctx context.Context, venueID string) ([]string, error) {
	if venueID == "" {
		ids, err := s.repo.Student.ListIDs(ctx, "")
		if err != nil {
			s.logger.Error("列出学生失败", zap.Error(err))
			return nil, err
		}
		if ids == nil {
			ids = []string{}
		}
		return ids, nil
	}

	if err := s.ensureVenue(ctx, venueID); err != nil {
		return nil, err
	}
	ids, err := s.repo.Module.ListVenueStudentIDs(ctx, venueID)
	if err != nil {
		s.logger.Error("查询场地学生失败", zap.String("venue_id", venueID), zap.Error(err))
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func (s *attendanceService) currentAuth(ctx context.Context, auth AuthContext) (AuthContext, error) {
	current, err := withCurrentVenue(ctx, s.repo.User, auth)
	if err != nil && !errors.Is(err, ErrForbidden) {
		s.logger.Error("查询当前账号失败", zap.String("user_id", auth.UserID), zap.Error(err))
	}
	return current, err
}

func (s *attendanceService) ensureVenue(ctx context.Context, venueID string) error {
	if _, err := s.repo.Venue.GetByID(ctx, venueID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrVenueNotFound
		}
		s.logger.Error("查询场地失败", zap.String("venue_id", venueID), zap.Error(err))
		return err
	}
	return nil
}

// resolveVenue staff 只能操作自己当前负责的场地；admin 可指定任意场地或不指定
func resolveVenue(auth AuthContext, requested string) (string, error) {
	if auth.IsAdmin() {
		return requested, nil
	}
	if auth.VenueID == "" {
		return "", ErrStaffWithoutVenue
	}
	if requested != "" && requested != auth.VenueID {
		return "", ErrAttendanceForbidden
	}
	return auth.VenueID, nil
}

func validateKey(date, session string) error {
	if !validate.IsDate(date) {
		return pkgerrors.NewValidationError("date", "日期格式必须为 YYYY-MM-DD，实际为 %q", date)
	}
	if !validate.IsSession(session) {
		return pkgerrors.NewValidationError("session", "时段只能是 forenoon 或 afternoon，实际为 %q", session)
	}
	return nil
}

func lockKey(date, session string) string {
	return fmt.Sprintf("attendance:lock:%s:%s", date, session)
}

func newSessionBucket() *dto.SessionBucket {
	return &dto.SessionBucket{
		Present: []dto.StudentBrief{},
		Absent:  []dto.StudentBrief{},
		OD:      []dto.StudentBrief{},
	}
}

func toDepartmentAttendanceResponse(d DepartmentAttendance) dto.DepartmentAttendanceResponse {
	return dto.DepartmentAttendanceResponse{
		Department: d.Department,
		Total:      d.Total,
		Present:    d.Present,
		Absent:     d.Absent,
		OnDuty:     d.OnDuty,
		Percentage: d.Percentage,
	}
}

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
