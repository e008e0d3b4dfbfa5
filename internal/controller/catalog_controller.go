package controller

import (
	"edu_progress_backend/internal/catalog"
	"edu_progress_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CatalogController struct {
	Catalog catalog.Catalog
}

func NewCatalogController(cat catalog.Catalog) *CatalogController {
	return &CatalogController{Catalog: cat}
}

// @Summary 学科列表
// @Description 返回全部学科及其章节目录
// @Tags 章节目录
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.Subject}
// @Router /api/catalog/subjects [get]
func (c *CatalogController) ListSubjects(ctx *gin.Context) {
	util.Success(ctx, c.Catalog.Subjects())
}

// @Summary 学科章节
// @Tags 章节目录
// @Produce json
// @Security BearerAuth
// @Param subjectId path string true "学科ID"
// @Success 200 {object} util.Response{data=[]model.Chapter}
// @Failure 404 {object} util.Response
// @Router /api/catalog/subjects/{subjectId}/chapters [get]
func (c *CatalogController) ListChapters(ctx *gin.Context) {
	chapters := c.Catalog.Chapters(ctx.Param("subjectId"))
	if len(chapters) == 0 {
		util.NotFound(ctx, util.ErrSubjectNotFound.Error())
		return
	}
	util.Success(ctx, chapters)
}
