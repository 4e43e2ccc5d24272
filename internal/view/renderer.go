package view

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/MrAliAmani/bids-scraping/internal/models"
)

type cachedCard struct {
	card     Card
	selected bool
	out      string
}

// Renderer keeps the last drawn frame of every card keyed by script name and
// redraws a card only when its descriptor or selection changed.
type Renderer struct {
	cache   map[string]cachedCard
	renders int
}

func NewRenderer() *Renderer {
	return &Renderer{cache: make(map[string]cachedCard)}
}

// Render lays the cards out in as many columns as fit in width.
func (r *Renderer) Render(records []models.Script, selected int, width int) string {
	if len(records) == 0 {
		r.cache = make(map[string]cachedCard)
		return dimStyle.Render("No scripts reported by the backend yet.")
	}

	seen := make(map[string]struct{}, len(records))
	cards := make([]string, 0, len(records))
	for i, record := range records {
		card := NewCard(record)
		isSelected := i == selected
		seen[card.Key] = struct{}{}

		if cached, ok := r.cache[card.Key]; ok && cached.card == card && cached.selected == isSelected {
			cards = append(cards, cached.out)
			continue
		}
		out := RenderCard(card, isSelected)
		r.renders++
		r.cache[card.Key] = cachedCard{card: card, selected: isSelected, out: out}
		cards = append(cards, out)
	}
	for key := range r.cache {
		if _, ok := seen[key]; !ok {
			delete(r.cache, key)
		}
	}

	cols := Columns(width)
	rows := make([]string, 0, (len(cards)+cols-1)/cols)
	for start := 0; start < len(cards); start += cols {
		end := start + cols
		if end > len(cards) {
			end = len(cards)
		}
		row := make([]string, 0, 2*(end-start))
		for i, c := range cards[start:end] {
			if i > 0 {
				row = append(row, " ")
			}
			row = append(row, c)
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// Renders reports how many cards have been drawn from scratch.
func (r *Renderer) Renders() int {
	return r.renders
}

func (r *Renderer) Cached() int {
	return len(r.cache)
}

// Columns is how many cards fit side by side in width.
func Columns(width int) int {
	cols := (width + cardGap) / (CardWidth + cardGap)
	if cols < 1 {
		return 1
	}
	return cols
}
