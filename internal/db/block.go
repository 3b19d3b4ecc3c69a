package db

// TimeBlock 描述一天中的固定 4 小时周期
// 六个周期覆盖完整 24 小时，活动可选地归属某个周期
type TimeBlock struct {
	ID        int    `json:"id"`
	Label     string `json:"label"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// Blocks 列出全部六个周期，顺序固定
var Blocks = []TimeBlock{
	{ID: 1, Label: "Brahma Muhurta", StartTime: "04:00", EndTime: "08:00"},
	{ID: 2, Label: "Pratah", StartTime: "08:00", EndTime: "12:00"},
	{ID: 3, Label: "Madhyahna", StartTime: "12:00", EndTime: "16:00"},
	{ID: 4, Label: "Aparahna", StartTime: "16:00", EndTime: "20:00"},
	{ID: 5, Label: "Sayahna", StartTime: "20:00", EndTime: "00:00"},
	{ID: 6, Label: "Nishita", StartTime: "00:00", EndTime: "04:00"},
}

// BlockByID 按编号查找周期，未命中返回 false
func BlockByID(id int) (TimeBlock, bool) {
	for _, b := range Blocks {
		if b.ID == id {
			return b, true
		}
	}
	return TimeBlock{}, false
}
