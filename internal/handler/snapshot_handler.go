package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// 导入载荷上限，与 AI 响应读取上限保持同级
const maxSnapshotBytes = 1 << 20

// ExportSnapshot 导出全部活动为单一 JSON 数组（旧版快照格式）
func (a *API) ExportSnapshot(c *gin.Context) {
	entries, err := a.snapshots.Export()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "导出活动失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"activities": entries})
}

// ImportSnapshot 用上传的快照整体替换活动集合。
// 格式错误的载荷按空集合处理，不改动现有数据
func (a *API) ImportSnapshot(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSnapshotBytes))
	if err != nil {
		respondError(c, http.StatusBadRequest, "读取快照失败")
		return
	}

	imported, err := a.snapshots.Import(raw)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "导入活动失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"imported": imported})
}
