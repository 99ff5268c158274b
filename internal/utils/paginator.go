package utils

import (
	"strconv"
	"strings"
)

// Paginator 按固定页大小切分结果集。页码规则：
// 非整数或缺省页码取第 1 页，越界页码（<1 或 >NumPages）取最后一页。
type Paginator struct {
	Count   int64
	PerPage int
}

// Page 表示选中的页及其在结果集中的窗口。
type Page struct {
	Number int
	Offset int
	Limit  int
}

func NewPaginator(count int64, perPage int) Paginator {
	if perPage < 1 {
		perPage = 1
	}
	if count < 0 {
		count = 0
	}
	return Paginator{Count: count, PerPage: perPage}
}

// NumPages 总页数；空结果集也有 1 页。
func (p Paginator) NumPages() int {
	hits := p.Count
	if hits < 1 {
		hits = 1
	}
	per := int64(p.PerPage)
	return int((hits + per - 1) / per)
}

// Page 解析查询参数中的页码并返回对应窗口。
func (p Paginator) Page(raw string) Page {
	num, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		num = 1
	} else if num < 1 || num > p.NumPages() {
		num = p.NumPages()
	}
	return Page{Number: num, Offset: (num - 1) * p.PerPage, Limit: p.PerPage}
}
