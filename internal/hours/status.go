package hours

import (
	"fmt"
	"time"
)

type statusTexts struct {
	open   string
	closed string // formatted with the next opening timestamp
}

var statusByLanguage = map[string]statusTexts{
	"ukr": {
		open:   "Ми зараз працюємо і відповімо якнайшвидше.",
		closed: "Зараз ми не працюємо. Відкриємося %s.",
	},
	"eng": {
		open:   "We are open right now and will reply as soon as possible.",
		closed: "We are currently closed. We open again on %s.",
	},
}

// StatusMessage is a human-readable open/closed statement for the given
// language, including the next opening instant when closed. Unknown
// languages fall back to Ukrainian.
func (o *Oracle) StatusMessage(language string, t time.Time) string {
	texts, ok := statusByLanguage[language]
	if !ok {
		texts = statusByLanguage["ukr"]
	}
	if o.IsOpenAt(t) {
		return texts.open
	}
	next := o.NextOpen(t).In(o.loc)
	return fmt.Sprintf(texts.closed, next.Format("02.01.2006 15:04"))
}
