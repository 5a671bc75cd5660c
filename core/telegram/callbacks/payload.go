package callbacks

import (
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// PayloadIDString parses a callback payload of the form "<id>:<rest>"
// where id is numeric and rest may contain any characters including ':'.
func PayloadIDString(c tele.Context) (int64, string, error) {
	p := CallbackPayload(c)
	idPart, rest, found := strings.Cut(p, ":")
	if !found {
		return 0, "", strconv.ErrSyntax
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return 0, "", err
	}
	return id, rest, nil
}
