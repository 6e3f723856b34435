package main

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"

	app "github.com/etitcombe/workjournal"
)

// markdown renders entry text. Raw HTML in the input is escaped since
// html.WithUnsafe is not set.
var markdown = goldmark.New(
	goldmark.WithRendererOptions(
		html.WithHardWraps(),
	),
)

type listingView struct {
	Weeks []weekView
	Form  *formView
}

type weekView struct {
	WeekStart string
	Label     string
	Sections  []sectionView
}

type sectionView struct {
	Type  app.EntryType
	Title string
	Items []itemView
}

type itemView struct {
	ID      int64
	HTML    template.HTML
	EditURL string
}

// buildWeeks turns grouped entries into the listing's display tree. Weeks and
// sections without entries are left out. Edit links are only set for admins.
func buildWeeks(weeks []app.WeekBucket, isAdmin bool) []weekView {
	var views []weekView
	for _, w := range weeks {
		wv := weekView{WeekStart: w.WeekStart, Label: weekLabel(w.WeekStart)}
		for _, t := range app.EntryTypes {
			entries := w.ByType(t)
			if len(entries) == 0 {
				continue
			}
			sv := sectionView{Type: t, Title: t.Title()}
			for _, e := range entries {
				item := itemView{ID: e.ID, HTML: renderText(e.Text)}
				if isAdmin {
					item.EditURL = editURL(e.ID)
				}
				sv.Items = append(sv.Items, item)
			}
			wv.Sections = append(wv.Sections, sv)
		}
		if len(wv.Sections) == 0 {
			continue
		}
		views = append(views, wv)
	}
	return views
}

func weekLabel(weekStart string) string {
	d, err := app.ParseDate(weekStart)
	if err != nil {
		return "Week of " + weekStart
	}
	return "Week of " + d.Format("January 2, 2006")
}

func editURL(id int64) string {
	return fmt.Sprintf("/entries/%d/edit", id)
}

func renderText(text string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String())
}

type formView struct {
	Mode      string
	Action    string
	Date      string
	Text      string
	Options   []optionView
	CanDelete bool
}

type optionView struct {
	Value   string
	Label   string
	Checked bool
}

func newFormView(mode, action string, date string, typ app.EntryType, text string) *formView {
	fv := &formView{
		Mode:      mode,
		Action:    action,
		Date:      date,
		Text:      text,
		CanDelete: mode == "edit",
	}
	for _, t := range app.EntryTypes {
		fv.Options = append(fv.Options, optionView{Value: string(t), Label: t.Label(), Checked: t == typ})
	}
	return fv
}

// createForm is the empty form on the listing page, dated today.
func createForm(now time.Time) *formView {
	return newFormView("create", "/", now.Format(app.DateLayout), "", "")
}

// editForm is prefilled with e.
func editForm(e app.Entry) *formView {
	return newFormView("edit", editURL(e.ID), e.Day(), e.Type, e.Text)
}

type editView struct {
	Entry app.Entry
	HTML  template.HTML
	Form  *formView
}

type deleteView struct {
	Entry  app.Entry
	HTML   template.HTML
	Action string
}
