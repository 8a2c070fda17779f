package dialogs

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// ShowPasscode asks for the admin passcode. check is called with the
// entered text; an error keeps the prompt closed and is shown to the user.
func ShowPasscode(window fyne.Window, check func(string) error) {
	entry := widget.NewPasswordEntry()
	entry.SetPlaceHolder("Código de administrador")

	items := []*widget.FormItem{widget.NewFormItem("Código", entry)}
	dlg := dialog.NewForm("Modo Administrador", "Entrar", "Cancelar", items, func(ok bool) {
		if !ok {
			return
		}
		if err := check(entry.Text); err != nil {
			dialog.ShowError(err, window)
		}
	}, window)
	dlg.Resize(fyne.NewSize(360, 160))
	dlg.Show()
	window.Canvas().Focus(entry)
}
