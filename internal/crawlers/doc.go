// Package crawlers 提供页面抓取、巡览链接识别与重定向解析
//
// # 概述
//
// crawlers包实现单个物业站点爬取所需的全部组件。所有组件均为单线程顺序使用,
// 由 core.Crawler 按 "抓取 → 拦截检测 → 提取 → 解析 → 分类" 的顺序驱动。
//
// # 核心组件
//
// ## CrawlScope / Frontier (爬取范围与队列)
//
// CrawlScope 由入口URL计算: 同一域名且路径以规范化前缀开头。
// Frontier 是广度优先队列,入队时去重并限制总页面数。
//
//	scope, err := NewCrawlScope("https://example.com/austin/")
//	frontier := NewFrontier(scope, maxPages)
//	frontier.Push(startURL, 0, "")
//	item, ok := frontier.Pop()
//
// ## PageFetcher (页面抓取)
//
// StaticFetcher 基于Colly,透明跟随HTTP重定向;RodSession 基于go-rod,
// 用于脚本渲染页面和客户端跳转。CompositeFetcher 按模式选择二者。
// RodSession 由每次爬取独立创建,调用方负责 defer Close()。
//
//	session, err := NewRodSessionFactory(RodOptions{Headless: true})(ctx)
//	if err != nil { /* 初始化失败,中止当前物业 */ }
//	defer session.Close()
//
//	fetcher := NewCompositeFetcher(NewStaticFetcher(timeout, headers, nil), session, renderWait)
//	page, err := fetcher.Fetch(ctx, url, models.FetchRendered)
//
// ## TourExtractor (巡览候选提取)
//
// 由一组相互独立的 Strategy 组成,默认顺序:
//   - iframe-src: iframe指向巡览平台
//   - data-attribute: data-*属性或onclick中的平台链接
//   - anchor-by-domain: 链接域名属于巡览平台
//   - anchor-by-text: 链接文本/title/aria-label/alt含巡览短语
//   - container-by-class: 巡览类名容器内的链接
//   - button-embedded: 无跳转目标的按钮,记录为 embedded:// 伪URL
//
// 新增识别方式只需向策略列表追加一个 Strategy。
//
// ## BlockDetector (反爬拦截检测)
//
// 页面小于阈值且命中拦截提示,或缺少结构标记且极小时判定为拦截。
//
// ## RedirectResolver / Classifier (重定向解析与分类)
//
// Resolver 返回最终落地URL,Classifier 按顺序规则给出 GOOD / BAD REDIRECT。
//
// # 配置参数 (configs/config.yaml)
//
//	detection:
//	  platform_domains: [visitingmedia.com, truetour.app, matterport.com]
//	  client_redirect_domains: [truetour.app]
//	blocking:
//	  max_size: 30000
//	  tiny_size: 2000
//	classify:
//	  media_segment: media
//	  media_id_min_digits: 6
package crawlers
