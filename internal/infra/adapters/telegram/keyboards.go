package telegram

import (
	tele "gopkg.in/telebot.v4"

	"telegram-support-bot/internal/application"
	"telegram-support-bot/internal/domain/model"
)

// categoryMenu builds the inline keyboard shown with most private-chat
// replies: one button per category plus the standing actions.
func categoryMenu(tr application.Translator) *tele.ReplyMarkup {
	r := &tele.ReplyMarkup{}

	var rows []tele.Row
	for _, c := range model.AllCategories() {
		d, _ := c.Descriptor()
		rows = append(rows, r.Row(r.Data(tr.T(d.LabelKey), "cat", c.String())))
	}
	rows = append(rows,
		r.Row(r.Data(tr.T("btn.community"), "act", "community")),
		r.Row(
			r.Data(tr.T("btn.unsubscribe"), "act", "unsubscribe"),
			r.Data(tr.T("btn.main_menu"), "act", "menu"),
		),
	)
	r.Inline(rows...)
	return r
}
