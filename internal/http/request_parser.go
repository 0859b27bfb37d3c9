// This file turns submitted forms into domain inputs. Field rules live on
// the form structs as validator tags; the domain validates again before
// any gateway call.

package http

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"racevault/internal/core"
	"racevault/internal/services"
)

// MsgPickCategory is shown when an expense is submitted without a category.
const MsgPickCategory = "Pilih kategori!"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if label := f.Tag.Get("label"); label != "" {
			return label
		}
		return f.Name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// FormError is a user-facing validation failure.
type FormError struct {
	Message string
}

func (e *FormError) Error() string { return e.Message }

type raceForm struct {
	Name     string `form:"name" label:"Event Name" validate:"notblank,max=120"`
	Date     string `form:"race_date" label:"Race Date" validate:"required,datetime=2006-01-02"`
	Location string `form:"location" label:"Location" validate:"max=120"`
	Distance string `form:"distance" label:"Category" validate:"max=120"`
}

type expenseForm struct {
	CategoryID  string `form:"category_id" label:"Category" validate:"required,uuid"`
	Date        string `form:"expense_date" label:"Transaction Date" validate:"required,datetime=2006-01-02"`
	Amount      string `form:"amount" label:"Amount (IDR)" validate:"required"`
	Description string `form:"description" label:"Description" validate:"max=200"`
}

// ParseRaceForm reads the register-race form. The owner is left unset; the
// tracker stamps it from the principal.
func ParseRaceForm(r *http.Request) (core.NewRace, error) {
	if err := r.ParseForm(); err != nil {
		return core.NewRace{}, &FormError{Message: "Invalid request format"}
	}
	form := raceForm{
		Name:     sanitizeInput(r.PostForm.Get("name")),
		Date:     sanitizeInput(r.PostForm.Get("race_date")),
		Location: sanitizeInput(r.PostForm.Get("location")),
		Distance: sanitizeInput(r.PostForm.Get("distance")),
	}
	if err := validateForm(form); err != nil {
		return core.NewRace{}, err
	}

	date, err := core.ParseDate(form.Date)
	if err != nil {
		return core.NewRace{}, &FormError{Message: "Race Date is not valid"}
	}
	return core.NewRace{
		Name:     form.Name,
		Date:     date,
		Location: form.Location,
		Distance: form.Distance,
	}, nil
}

// ParseExpenseForm reads the multipart log-expense form. The returned
// receipt is nil when no proof was attached; otherwise the caller must
// close the returned closer once the receipt has been consumed.
func ParseExpenseForm(r *http.Request, raceID uuid.UUID, maxMemory int64) (core.NewExpense, *services.Receipt, io.Closer, error) {
	if err := r.ParseMultipartForm(maxMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return core.NewExpense{}, nil, nil, services.ErrReceiptTooLarge
		}
		return core.NewExpense{}, nil, nil, &FormError{Message: "Invalid request format"}
	}
	if r.PostForm == nil {
		_ = r.ParseForm()
	}

	form := expenseForm{
		CategoryID:  sanitizeInput(r.PostFormValue("category_id")),
		Date:        sanitizeInput(r.PostFormValue("expense_date")),
		Amount:      sanitizeInput(r.PostFormValue("amount")),
		Description: sanitizeInput(r.PostFormValue("description")),
	}
	if err := validateForm(form); err != nil {
		return core.NewExpense{}, nil, nil, err
	}

	amount, err := core.ParseAmountInput(form.Amount)
	if err != nil {
		return core.NewExpense{}, nil, nil, &FormError{Message: "Amount (IDR) is not valid"}
	}
	date, err := core.ParseDate(form.Date)
	if err != nil {
		return core.NewExpense{}, nil, nil, &FormError{Message: "Transaction Date is not valid"}
	}

	in := core.NewExpense{
		RaceID:      raceID,
		CategoryID:  uuid.MustParse(form.CategoryID),
		Amount:      amount,
		Description: form.Description,
		ExpenseDate: date,
	}

	receipt, closer, err := receiptFromForm(r)
	if err != nil {
		return core.NewExpense{}, nil, nil, err
	}
	return in, receipt, closer, nil
}

func receiptFromForm(r *http.Request) (*services.Receipt, io.Closer, error) {
	if r.MultipartForm == nil {
		return nil, nil, nil
	}
	file, header, err := r.FormFile("proof")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, &FormError{Message: "Proof (Image/PDF) could not be read"}
	}
	if header.Size == 0 && header.Filename == "" {
		file.Close()
		return nil, nil, nil
	}
	return &services.Receipt{
		Filename: header.Filename,
		Size:     header.Size,
		Body:     file,
	}, multipartCloser{file}, nil
}

type multipartCloser struct{ f multipart.File }

func (c multipartCloser) Close() error { return c.f.Close() }

// validateForm runs the struct rules and reports the first failing field.
func validateForm(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &FormError{Message: err.Error()}
	}
	return &FormError{Message: validationErrorToText(verrs[0])}
}

func validationErrorToText(e validator.FieldError) string {
	if e.StructField() == "CategoryID" {
		return MsgPickCategory
	}
	switch e.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("%s is required", e.Field())
	case "max":
		return fmt.Sprintf("%s cannot be longer than %s characters", e.Field(), e.Param())
	case "datetime":
		return fmt.Sprintf("%s must be a date (YYYY-MM-DD)", e.Field())
	}
	return fmt.Sprintf("%s is not valid", e.Field())
}

// sanitizeInput trims and drops control characters except tab and newlines.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
