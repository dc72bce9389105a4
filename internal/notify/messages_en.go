package notify

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	for _, lang := range []language.Tag{language.English, language.BritishEnglish} {
		message.SetString(lang, "notification.generic.title", defaultGenericTitle)
		message.SetString(lang, "notification.generic.body", defaultGenericBody)
		message.SetString(lang, "notification.settlement_created.title", "New settlement")
		message.SetString(lang, "notification.settlement_created.body", "%[1]s owes %[2]s %[3]s for %[4]s on %[5]s (%[6]s).")
		message.SetString(lang, "notification.settlement_settled.title", "Settlement paid")
		message.SetString(lang, "notification.settlement_settled.body", "%[1]s paid back %[2]s %[3]s for %[4]s (%[6]s).")
	}
}
