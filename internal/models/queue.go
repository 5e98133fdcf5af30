package models

// FrontierItem 待抓取队列中的一项
type FrontierItem struct {
	// URL 规范化后的页面URL
	URL string

	// Depth 距入口页面的链接层数
	//   - 0: 入口URL
	//   - 1: 从入口页面发现的链接
	Depth int

	// SourceURL 发现此URL的页面(入口为空)
	SourceURL string
}
