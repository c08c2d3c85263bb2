package uploader

import (
	"context"
	"errors"
)

// ErrNoSuchPage возвращается при попытке выйти за границы
// известных страниц
var ErrNoSuchPage = errors.New("no such page")

// PageFunc загружает одну страницу по курсору и возвращает курсор
// следующей страницы. Отображение данных остается за вызывающим
type PageFunc func(ctx context.Context, cursor string) (next string, hasMore bool, err error)

// Pager запоминает курсор каждой посещенной страницы, что позволяет
// ходить назад по непрозрачным курсорам. Курсоры никогда не
// вычисляются, только воспроизводятся из записанных
type Pager struct {
	fetch PageFunc

	// cursors[i] — курсор, с которым запрашивается страница i.
	// Первая страница всегда запрашивается с пустым курсором
	cursors    []string
	index      int
	nextCursor string
	hasMore    bool
	started    bool
}

func NewPager(fetch PageFunc) *Pager {
	return &Pager{
		fetch:   fetch,
		cursors: []string{""},
	}
}

func (p *Pager) load(ctx context.Context, index int) error {
	next, hasMore, err := p.fetch(ctx, p.cursors[index])
	if err != nil {
		return err
	}

	p.index = index
	p.nextCursor = next
	p.hasMore = hasMore
	p.started = true
	return nil
}

// Start загружает первую страницу
func (p *Pager) Start(ctx context.Context) error {
	return p.load(ctx, 0)
}

// Next переходит на следующую страницу. Курсор уже посещенной
// страницы берется из записанных, новый добавляется в конец
func (p *Pager) Next(ctx context.Context) error {
	if !p.started {
		return p.Start(ctx)
	}

	if p.index+1 < len(p.cursors) {
		return p.load(ctx, p.index+1)
	}

	if !p.hasMore || p.nextCursor == "" {
		return ErrNoSuchPage
	}

	p.cursors = append(p.cursors, p.nextCursor)
	return p.load(ctx, p.index+1)
}

// Prev возвращается на предыдущую страницу по записанному курсору
func (p *Pager) Prev(ctx context.Context) error {
	if !p.started || p.index == 0 {
		return ErrNoSuchPage
	}
	return p.load(ctx, p.index-1)
}

// Page возвращает номер текущей страницы, начиная с нуля
func (p *Pager) Page() int {
	return p.index
}

// HasNext сообщает, есть ли страница после текущей
func (p *Pager) HasNext() bool {
	return p.index+1 < len(p.cursors) || (p.hasMore && p.nextCursor != "")
}
