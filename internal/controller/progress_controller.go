package controller

import (
	"edu_progress_backend/internal/model"
	"edu_progress_backend/internal/progress"
	"edu_progress_backend/internal/service"
	"edu_progress_backend/internal/timer"
	"edu_progress_backend/internal/util"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressService
	ExportService   *service.ExportService
}

func NewProgressController(progressService *service.ProgressService, exportService *service.ExportService) *ProgressController {
	return &ProgressController{ProgressService: progressService, ExportService: exportService}
}

// ChapterWriteResponse 写操作的返回。Persisted 为 false 表示更新已在内存生效但未能写入存储
type ChapterWriteResponse struct {
	Progress  model.ChapterProgress `json:"progress"`
	Persisted bool                  `json:"persisted"`
}

type PageRequest struct {
	Page int `json:"page" binding:"required,min=1"`
}

type ScoreRequest struct {
	Score *int `json:"score" binding:"required"`
}

type TimerRequest struct {
	Mode    string `json:"mode" binding:"required,oneof=idle reading quiz"`
	Visible *bool  `json:"visible"`
}

type UnlockResponse struct {
	ChapterID string `json:"chapterId"`
	Unlocked  bool   `json:"unlocked"`
}

type OverallResponse struct {
	Percent int `json:"percent"`
}

func writeError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, progress.ErrChapterLocked):
		util.Error(ctx, http.StatusForbidden, err.Error())
	case errors.Is(err, progress.ErrInvalidScore),
		errors.Is(err, progress.ErrInvalidPage),
		errors.Is(err, progress.ErrInvalidQuizPage),
		errors.Is(err, progress.ErrInvalidDuration):
		util.BadRequest(ctx, err.Error())
	case errors.Is(err, progress.ErrQuizRequired),
		errors.Is(err, progress.ErrAttemptsExhausted):
		util.Conflict(ctx, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}

// respondWrite 持久化失败仍返回 200，由 persisted 字段告知客户端
func respondWrite(ctx *gin.Context, p model.ChapterProgress, err error) {
	if err != nil && !errors.Is(err, progress.ErrPersist) {
		writeError(ctx, err)
		return
	}
	util.Success(ctx, ChapterWriteResponse{Progress: p, Persisted: err == nil})
}

func (c *ProgressController) learner(ctx *gin.Context) (string, bool) {
	id := util.GetLearnerID(ctx)
	if id == "" {
		util.Unauthorized(ctx)
		return "", false
	}
	return id, true
}

func (c *ProgressController) apply(ctx *gin.Context, intent progress.Intent) {
	learnerID, ok := c.learner(ctx)
	if !ok {
		return
	}
	p, err := c.ProgressService.Apply(ctx.Request.Context(), learnerID, ctx.Param("subjectId"), ctx.Param("chapterId"), intent)
	respondWrite(ctx, p, err)
}

// @Summary 获取章节进度
// @Description 返回章节的阅读进度，没有记录时返回默认值
// @Tags 学习进度
// @Produce json
// @Security BearerAuth
// @Param subjectId path string true "学科ID"
// @Param chapterId path string true "章节ID"
// @Success 200 {object} util.Response{data=model.ChapterProgress}
// @Router /api/progress/subjects/{subjectId}/chapters/{chapterId} [get]
func (c *ProgressController) GetChapterProgress(ctx *gin.Context) {
	learnerID, ok := c.learner(ctx)
	if !ok {
		return
	}

	p, err := c.ProgressService.GetChapterProgress(ctx.Request.Context(), learnerID, ctx.Param("subjectId"), ctx.Param("chapterId"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, p)
}

// @Summary 更新章节进度
// @Description 浅合并更新章节进度字段，嵌套的小测记录整体替换
// @Tags 学习进度
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param subjectId path string true "学科ID"
// @Param chapterId path string true "章节ID"
// @Param update body model.ChapterUpdate true "要修改的字段"
// @Success 200 {object} util.Response{data=ChapterWriteResponse}
// @Router /api/progress/subjects/{subjectId}/chapters/{chapterId} [patch]
func (c *ProgressController) UpdateChapterProgress(ctx *gin.Context) {
	learnerID, ok := c.learner(ctx)
	if !ok {
		return
	}

	var upd model.ChapterUpdate
	if err := ctx.ShouldBindJSON(&upd); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	p, err := c.ProgressService.UpdateChapterProgress(ctx.Request.Context(), learnerID, ctx.Param("subjectId"), ctx.Param("chapterId"), upd)
	respondWrite(ctx, p, err)
}

// @Summary 翻页
// @Description 记录阅读到的页码，未通过前面的小测时不能继续翻页
// @Tags 学习进度
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param subjectId path string true "学科ID"
// @Param chapterId path string true "章节ID"
// @Param page body PageRequest true "页码"
// @Success 200 {object} util.Response{data=ChapterWriteResponse}
// @Failure 403 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/progress/subjects/{subjectId}/chapters/{chapterId}/page [post]
func (c *ProgressController) AdvancePage(ctx *gin.Context) {
	var req PageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	c.apply(ctx, progress.PageAdvanced{Page: req.Page})
}

// @Summary 提交小测成绩
// @Tags 学习进度
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param subjectId path string true "学科ID"
// @Param chapterId path string true "章节ID"
// @Param page path int true "小测所在页"
// @Param score body ScoreRequest true "成绩（0-100）"
// @Success 200 {object} util.Response{data=ChapterWriteResponse}
// @Router /api/progress/subjects/{subjectId}/chapters/{chapterId}/quizzes/{page} [post]
func (c *ProgressController) CompleteQuiz(ctx *gin.Context) {
	page, err := strconv.Atoi(ctx.Param("page"))
	if err != nil {
		util.BadRequest(ctx, "invalid quiz page")
		return
	}

	var req ScoreRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	c.apply(ctx, progress.QuizCompleted{Page: page, Score: *req.Score})
}

// @Summary 开始章末测试
// @Tags 学习进度
// @Produce json
// @Security BearerAuth
// @Param subjectId path string true "学科ID"
// @Param chapterId path string true "章节ID"
// @Success 200 {object} util.Response{data=ChapterWriteResponse}
// @Failure 409 {object} util.Response
// @Router /api/progress/subjects/{subjectId}/chapters/{chapterId}/test/start [post]
func (c *ProgressController) StartTest(ctx *gin.Context) {
	c.apply(ctx, progress.TestStarted{})
}

// @Summary 提交章末测试成绩
// @Description 保留最高分，达到及格线后章节测试视为通过
// @Tags 学习进度
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param subjectId path string true "学科ID"
// @Param chapterId path string true "章节ID"
// @Param score body ScoreRequest true "成绩（0-100）"
// @Success 200 {object} util.Response{data=ChapterWriteResponse}
// @Router /api/progress/subjects/{subjectId}/chapters/{chapterId}/test [post]
func (c *ProgressController) CompleteTest(ctx *gin.Context) {
	var req ScoreRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	c.apply(ctx, progress.TestCompleted{Score: *req.Score})
}

// @Summary 章节是否已解锁
// @Tags 学习进度
// @Produce json
// @Security BearerAuth
// @Param subjectId path string true "学科ID"
// @Param chapterId path string true "章节ID"
// @Success 200 {object} util.Response{data=UnlockResponse}
// @Router /api/progress/subjects/{subjectId}/chapters/{chapterId}/unlocked [get]
func (c *ProgressController) IsChapterUnlocked(ctx *gin.Context) {
	learnerID, ok := c.learner(ctx)
	if !ok {
		return
	}

	chapterID := ctx.Param("chapterId")
	unlocked, err := c.ProgressService.IsChapterUnlocked(ctx.Request.Context(), learnerID, ctx.Param("subjectId"), chapterID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, UnlockResponse{ChapterID: chapterID, Unlocked: unlocked})
}

// @Summary 设置阅读计时器
// @Description 切换计时模式（idle/reading/quiz）和页面可见性
// @Tags 学习进度
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param subjectId path string true "学科ID"
// @Param chapterId path string true "章节ID"
// @Param timer body TimerRequest true "计时模式"
// @Success 200 {object} util.Response{data=service.TimerState}
// @Router /api/progress/subjects/{subjectId}/chapters/{chapterId}/timer [put]
func (c *ProgressController) SetTimer(ctx *gin.Context) {
	learnerID, ok := c.learner(ctx)
	if !ok {
		return
	}

	var req TimerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	mode, err := timer.ParseMode(req.Mode)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	state, err := c.ProgressService.SetReadingTimer(ctx.Request.Context(), learnerID, ctx.Param("subjectId"), ctx.Param("chapterId"), mode, req.Visible)
	if err != nil {
		writeError(ctx, err)
		return
	}
	util.Success(ctx, state)
}

// @Summary 学科进度统计
// @Tags 学习进度
// @Produce json
// @Security BearerAuth
// @Param subjectId path string true "学科ID"
// @Success 200 {object} util.Response{data=model.SubjectProgress}
// @Router /api/progress/subjects/{subjectId} [get]
func (c *ProgressController) GetSubjectProgress(ctx *gin.Context) {
	learnerID, ok := c.learner(ctx)
	if !ok {
		return
	}

	sp, err := c.ProgressService.GetSubjectProgress(ctx.Request.Context(), learnerID, ctx.Param("subjectId"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, sp)
}

// @Summary 已完成章节
// @Tags 学习进度
// @Produce json
// @Security BearerAuth
// @Param subjectId path string true "学科ID"
// @Success 200 {object} util.Response{data=[]string}
// @Router /api/progress/subjects/{subjectId}/completed [get]
func (c *ProgressController) GetCompletedChapters(ctx *gin.Context) {
	learnerID, ok := c.learner(ctx)
	if !ok {
		return
	}

	ids, err := c.ProgressService.GetCompletedChapters(ctx.Request.Context(), learnerID, ctx.Param("subjectId"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, ids)
}

// @Summary 总体完成度
// @Tags 学习进度
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=OverallResponse}
// @Router /api/progress/overall [get]
func (c *ProgressController) GetOverallProgress(ctx *gin.Context) {
	learnerID, ok := c.learner(ctx)
	if !ok {
		return
	}

	percent, err := c.ProgressService.GetOverallProgress(ctx.Request.Context(), learnerID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, OverallResponse{Percent: percent})
}

// @Summary 今日阅读时长
// @Tags 学习进度
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.DailyTimeSummary}
// @Router /api/progress/daily-time [get]
func (c *ProgressController) GetDailyTime(ctx *gin.Context) {
	learnerID, ok := c.learner(ctx)
	if !ok {
		return
	}

	summary, err := c.ProgressService.DailyTime(ctx.Request.Context(), learnerID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, summary)
}

// @Summary 重置学习进度
// @Description 清空当前学习者的全部进度
// @Tags 学习进度
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/progress [delete]
func (c *ProgressController) ResetProgress(ctx *gin.Context) {
	learnerID, ok := c.learner(ctx)
	if !ok {
		return
	}

	err := c.ProgressService.ResetProgress(ctx.Request.Context(), learnerID)
	if err != nil && !errors.Is(err, progress.ErrPersist) {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"persisted": err == nil})
}

// @Summary 导出进度快照
// @Description 把当前进度以 JSON 上传到对象存储
// @Tags 学习进度
// @Produce json
// @Security BearerAuth
// @Success 201 {object} util.Response{data=service.ExportResult}
// @Router /api/progress/export [post]
func (c *ProgressController) Export(ctx *gin.Context) {
	learnerID, ok := c.learner(ctx)
	if !ok {
		return
	}

	res, err := c.ExportService.Export(ctx.Request.Context(), learnerID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, res)
}
