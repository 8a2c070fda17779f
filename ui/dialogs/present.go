package dialogs

import (
	"strings"

	"aprofinder/internal/points"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	fynestorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
)

// imageURI resolves a stored image reference, a URL or a local path.
func imageURI(ref string) (fyne.URI, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, false
	}
	if strings.Contains(ref, "://") {
		u, err := fynestorage.ParseURI(ref)
		return u, err == nil
	}
	return fynestorage.NewFileURI(ref), true
}

func thumbnail(ref string, size fyne.Size) fyne.CanvasObject {
	u, ok := imageURI(ref)
	if !ok {
		return nil
	}
	img := fynecanvas.NewImageFromURI(u)
	img.FillMode = fynecanvas.ImageFillContain
	img.SetMinSize(size)
	return img
}

// ShowPoint presents a point to a visitor: names, rating, description,
// contact link and gallery.
func ShowPoint(p points.Point, window fyne.Window) {
	title := widget.NewLabelWithStyle(p.BusinessName, fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	worker := widget.NewLabel(p.WorkerName + " · " + p.Profession)
	stars := widget.NewLabel(p.Stars())

	items := []fyne.CanvasObject{title, worker, stars}
	if profile := thumbnail(p.ProfileImage, fyne.NewSize(96, 96)); profile != nil {
		items = append([]fyne.CanvasObject{profile}, items...)
	}

	if p.Description != "" {
		desc := widget.NewLabel(p.Description)
		desc.Wrapping = fyne.TextWrapWord
		items = append(items, desc)
	}

	if link, ok := WhatsAppURL(p.Whatsapp); ok {
		items = append(items, widget.NewHyperlink("WhatsApp: "+p.Whatsapp, link))
	}

	if len(p.Images) > 0 {
		gallery := container.NewGridWrap(fyne.NewSize(120, 90))
		for _, ref := range p.Images {
			if img := thumbnail(ref, fyne.NewSize(120, 90)); img != nil {
				gallery.Add(img)
			}
		}
		items = append(items, widget.NewSeparator(), gallery)
	}

	dlg := dialog.NewCustom(p.Profession, "Cerrar", container.NewVScroll(container.NewVBox(items...)), window)
	dlg.Resize(fyne.NewSize(420, 480))
	dlg.Show()
}
