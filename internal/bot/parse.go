package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/magabrotheeeer/subscription-tracker/internal/catalog"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/validate"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// UsageError — некорректные аргументы команды. Текст показывается пользователю.
type UsageError struct {
	Usage  string
	Reason string
}

func (e *UsageError) Error() string {
	if e.Reason == "" {
		return "Использование: " + e.Usage
	}
	return e.Reason + "\nИспользование: " + e.Usage
}

const (
	usageAdd     = "/add <сервис или название> [цена] [weekly|monthly|quarterly|yearly|lifetime]"
	usageID      = "/%s <id>"
	usageCatalog = "/catalog <запрос>"
)

// Lookup — часть каталога, нужная для разбора /add.
type Lookup interface {
	ByID(id string) (catalog.ServiceRecord, bool)
}

// ParseAdd разбирает аргументы /add. Период и цена читаются с конца строки,
// остаток считается идентификатором каталога или названием.
func ParseAdd(args string, c Lookup, today time.Time) (models.DummySubscription, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return models.DummySubscription{}, &UsageError{Usage: usageAdd}
	}

	var req models.DummySubscription
	if len(fields) > 1 {
		if cycle, ok := models.ParseBillingCycle(fields[len(fields)-1]); ok {
			req.BillingCycle = string(cycle)
			fields = fields[:len(fields)-1]
		}
	}
	if len(fields) > 1 {
		if price, err := parsePrice(fields[len(fields)-1]); err == nil {
			req.Price = &price
			fields = fields[:len(fields)-1]
		} else if errors.Is(err, errNegativePrice) {
			return req, &UsageError{Usage: usageAdd, Reason: "Цена не может быть отрицательной"}
		}
	}

	name := strings.Join(fields, " ")
	if rec, ok := c.ByID(strings.ToLower(name)); ok {
		req.ServiceID = rec.ID
	} else {
		req.Name = name
		if req.Price == nil {
			return req, &UsageError{Usage: usageAdd, Reason: fmt.Sprintf("Сервис %q не найден в каталоге, укажите цену", name)}
		}
	}
	req.StartDate = today.Format(models.DateLayout)

	if err := validate.Default().Struct(req); err != nil {
		return req, &UsageError{Usage: usageAdd, Reason: "Некорректные данные подписки"}
	}
	return req, nil
}

var errNegativePrice = errors.New("negative price")

func parsePrice(s string) (float64, error) {
	s = strings.TrimSuffix(strings.TrimSuffix(s, "₽"), "р")
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, errNegativePrice
	}
	return v, nil
}

// ParseID разбирает единственный аргумент, ID подписки.
func ParseID(command, args string) (int, error) {
	usage := fmt.Sprintf(usageID, command)
	fields := strings.Fields(args)
	if len(fields) != 1 {
		return 0, &UsageError{Usage: usage}
	}
	id, err := strconv.Atoi(strings.TrimPrefix(fields[0], "#"))
	if err != nil || id <= 0 {
		return 0, &UsageError{Usage: usage, Reason: fmt.Sprintf("%q не похоже на ID подписки", fields[0])}
	}
	return id, nil
}

// ParseQuery разбирает аргумент /catalog.
func ParseQuery(args string) (string, error) {
	q := strings.TrimSpace(args)
	if q == "" {
		return "", &UsageError{Usage: usageCatalog}
	}
	return q, nil
}
