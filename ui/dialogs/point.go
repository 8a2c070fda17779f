package dialogs

import (
	"fmt"

	"aprofinder/internal/points"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// PointEditDialog edits a new or existing point. A point with an empty ID
// is new and has no delete button.
type PointEditDialog struct {
	point  points.Point
	window fyne.Window

	// Form entries
	businessEntry    *widget.Entry
	workerEntry      *widget.Entry
	professionEntry  *widget.Entry
	descriptionEntry *widget.Entry
	whatsappEntry    *widget.Entry
	profileEntry     *widget.Entry
	imagesEntry      *widget.Entry
	ratingSlider     *widget.Slider
	ratingLabel      *widget.Label

	// Callbacks
	onSave   func(points.Point) error
	onDelete func(points.Point) error
}

// NewPointEditDialog creates the dialog. onSave receives the edited point;
// when it returns an error the dialog stays open.
func NewPointEditDialog(p points.Point, window fyne.Window,
	onSave func(points.Point) error, onDelete func(points.Point) error) *PointEditDialog {
	return &PointEditDialog{
		point:    p,
		window:   window,
		onSave:   onSave,
		onDelete: onDelete,
	}
}

func (d *PointEditDialog) title() string {
	if d.point.ID == "" {
		return "Nuevo punto"
	}
	return "Editar punto"
}

// Show displays the dialog.
func (d *PointEditDialog) Show() {
	var dlg dialog.Dialog
	content := d.createContent()

	saveBtn := widget.NewButton("Guardar", func() {
		p, err := d.fields().Apply(d.point)
		if err != nil {
			dialog.ShowError(err, d.window)
			return
		}
		if d.onSave != nil {
			if err := d.onSave(p); err != nil {
				dialog.ShowError(err, d.window)
				return
			}
		}
		dlg.Hide()
	})
	saveBtn.Importance = widget.HighImportance

	cancelBtn := widget.NewButton("Cancelar", func() {
		dlg.Hide()
	})

	buttons := container.NewHBox(cancelBtn, saveBtn)
	if d.point.ID != "" && d.onDelete != nil {
		deleteBtn := widget.NewButton("Eliminar", func() {
			dialog.ShowConfirm("Eliminar punto",
				fmt.Sprintf("¿Eliminar %s?", d.point.BusinessName),
				func(confirmed bool) {
					if !confirmed {
						return
					}
					if err := d.onDelete(d.point); err != nil {
						dialog.ShowError(err, d.window)
						return
					}
					dlg.Hide()
				}, d.window)
		})
		deleteBtn.Importance = widget.DangerImportance
		buttons = container.NewHBox(deleteBtn, container.NewHBox(), cancelBtn, saveBtn)
	}

	fullContent := container.NewBorder(nil, buttons, nil, nil, content)
	dlg = dialog.NewCustomWithoutButtons(d.title(), fullContent, d.window)
	dlg.Resize(fyne.NewSize(480, 560))
	dlg.Show()
}

func (d *PointEditDialog) createContent() fyne.CanvasObject {
	f := FieldsOf(d.point)

	d.businessEntry = widget.NewEntry()
	d.businessEntry.SetText(f.BusinessName)

	d.workerEntry = widget.NewEntry()
	d.workerEntry.SetText(f.WorkerName)

	d.professionEntry = widget.NewEntry()
	d.professionEntry.SetText(f.Profession)
	d.professionEntry.SetPlaceHolder("ej. Plomero")

	d.descriptionEntry = widget.NewMultiLineEntry()
	d.descriptionEntry.SetText(f.Description)
	d.descriptionEntry.SetMinRowsVisible(3)

	d.whatsappEntry = widget.NewEntry()
	d.whatsappEntry.SetText(f.Whatsapp)
	d.whatsappEntry.SetPlaceHolder("+52 555 123 4567")

	d.profileEntry = widget.NewEntry()
	d.profileEntry.SetText(f.ProfileImage)
	d.profileEntry.SetPlaceHolder("Ruta o URL")

	d.imagesEntry = widget.NewMultiLineEntry()
	d.imagesEntry.SetText(f.Images)
	d.imagesEntry.SetMinRowsVisible(2)
	d.imagesEntry.SetPlaceHolder("Una ruta o URL por línea")

	d.ratingLabel = widget.NewLabel("")
	d.ratingSlider = widget.NewSlider(0, points.MaxRating)
	d.ratingSlider.Step = 0.5
	d.ratingSlider.OnChanged = func(v float64) {
		d.ratingLabel.SetText(points.Point{Rating: v}.Stars())
	}
	d.ratingSlider.SetValue(points.ClampRating(f.Rating))
	d.ratingLabel.SetText(points.Point{Rating: f.Rating}.Stars())

	form := widget.NewForm(
		widget.NewFormItem("Negocio", d.businessEntry),
		widget.NewFormItem("Trabajador", d.workerEntry),
		widget.NewFormItem("Profesión", d.professionEntry),
		widget.NewFormItem("Descripción", d.descriptionEntry),
		widget.NewFormItem("WhatsApp", d.whatsappEntry),
		widget.NewFormItem("Calificación", container.NewBorder(nil, nil, nil, d.ratingLabel, d.ratingSlider)),
		widget.NewFormItem("Foto de perfil", d.profileEntry),
		widget.NewFormItem("Imágenes", d.imagesEntry),
	)

	pos := widget.NewLabel(fmt.Sprintf("Posición: %.0f, %.0f", d.point.X, d.point.Y))
	pos.TextStyle = fyne.TextStyle{Italic: true}

	return container.NewVScroll(container.NewVBox(form, pos))
}

func (d *PointEditDialog) fields() PointFields {
	return PointFields{
		BusinessName: d.businessEntry.Text,
		WorkerName:   d.workerEntry.Text,
		Profession:   d.professionEntry.Text,
		Description:  d.descriptionEntry.Text,
		Whatsapp:     d.whatsappEntry.Text,
		Rating:       d.ratingSlider.Value,
		ProfileImage: d.profileEntry.Text,
		Images:       d.imagesEntry.Text,
	}
}
