// Package panels provides UI panels for the application.
package panels

import (
	"fmt"
	"strings"

	"aprofinder/internal/app"
	"aprofinder/internal/points"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// ExcerptLength is the description length shown in a search result.
const ExcerptLength = 100

// ResultTitle is the first line of a search result.
func ResultTitle(p points.Point) string {
	return fmt.Sprintf("%s  %s", p.BusinessName, p.Stars())
}

// ResultDetail is the second line of a search result.
func ResultDetail(p points.Point) string {
	detail := p.WorkerName + " · " + p.Profession
	if ex := p.Excerpt(ExcerptLength); ex != "" {
		detail += "\n" + ex
	}
	return detail
}

// SearchPanel lists the points of the active map that match the query.
type SearchPanel struct {
	state     *app.State
	container *fyne.Container

	entry   *widget.Entry
	list    *widget.List
	summary *widget.Label
	results []points.Point

	// Callbacks
	onSelect func(points.Point)
}

// NewSearchPanel creates the panel. It re-runs the query whenever the
// points or the active map change.
func NewSearchPanel(state *app.State) *SearchPanel {
	sp := &SearchPanel{state: state}

	sp.entry = widget.NewEntry()
	sp.entry.SetPlaceHolder("Buscar trabajador, negocio o profesión")
	sp.entry.OnChanged = func(string) { sp.Refresh() }

	sp.summary = widget.NewLabel("")

	sp.list = widget.NewList(
		func() int { return len(sp.results) },
		func() fyne.CanvasObject {
			title := widget.NewLabelWithStyle("", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
			detail := widget.NewLabel("")
			detail.Wrapping = fyne.TextWrapWord
			return container.NewVBox(title, detail)
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			if id < 0 || id >= len(sp.results) {
				return
			}
			p := sp.results[id]
			box := obj.(*fyne.Container)
			box.Objects[0].(*widget.Label).SetText(ResultTitle(p))
			box.Objects[1].(*widget.Label).SetText(ResultDetail(p))
		},
	)
	sp.list.OnSelected = func(id widget.ListItemID) {
		if id >= 0 && id < len(sp.results) && sp.onSelect != nil {
			sp.onSelect(sp.results[id])
		}
		sp.list.UnselectAll()
	}

	state.On(app.EventPointsChanged, func(interface{}) { sp.Refresh() })
	state.On(app.EventMapLoaded, func(interface{}) { sp.Refresh() })

	sp.container = container.NewBorder(
		container.NewVBox(sp.entry, sp.summary), // top
		nil, nil, nil,
		sp.list, // center
	)
	return sp
}

// Container returns the panel container.
func (sp *SearchPanel) Container() fyne.CanvasObject {
	return sp.container
}

// OnSelect sets the callback for a chosen result.
func (sp *SearchPanel) OnSelect(callback func(points.Point)) {
	sp.onSelect = callback
}

// Results returns the current matches.
func (sp *SearchPanel) Results() []points.Point {
	return sp.results
}

// SetQuery replaces the query text and searches.
func (sp *SearchPanel) SetQuery(q string) {
	sp.entry.SetText(q)
	sp.Refresh()
}

// Refresh runs the current query again.
func (sp *SearchPanel) Refresh() {
	query := strings.TrimSpace(sp.entry.Text)
	sp.results = sp.state.Search(query)

	switch {
	case query == "":
		sp.summary.SetText("")
	case len([]rune(query)) < points.MinQueryLength:
		sp.summary.SetText(fmt.Sprintf("Escribe al menos %d caracteres", points.MinQueryLength))
	case len(sp.results) == 0:
		sp.summary.SetText("Sin resultados")
	case len(sp.results) == 1:
		sp.summary.SetText("1 resultado")
	default:
		sp.summary.SetText(fmt.Sprintf("%d resultados", len(sp.results)))
	}
	sp.list.Refresh()
}
