package checkout

import (
	"fmt"
	"regexp"
	"strings"

	"storefront/internal/models"

	"github.com/go-playground/validator/v10"
)

// DeliveryForm is the raw delivery details step input. Door number, area
// and landmark are optional address parts; the rest are required.
type DeliveryForm struct {
	Name     string `json:"deliveryName" validate:"required,min=2"`
	Phone    string `json:"deliveryPhone" validate:"required,mobile10"`
	Email    string `json:"deliveryEmail" validate:"required,email"`
	DoorNo   string `json:"doorNo"`
	Area     string `json:"area"`
	Landmark string `json:"landmark"`
	City     string `json:"city" validate:"required"`
	District string `json:"district" validate:"required"`
	Pincode  string `json:"pincode" validate:"required,pincode"`
}

var (
	mobilePattern  = regexp.MustCompile(`^[6-9]\d{9}$`)
	pincodePattern = regexp.MustCompile(`^\d{6}$`)

	validate = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("mobile10", func(fl validator.FieldLevel) bool {
		return mobilePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("pincode", func(fl validator.FieldLevel) bool {
		return pincodePattern.MatchString(fl.Field().String())
	})
	return v
}

// ValidateDelivery validates the form and, on success, returns the stored
// delivery record with the composed human-readable address. On failure it
// returns a ValidationError with one message per offending field.
func ValidateDelivery(form DeliveryForm) (*models.DeliveryDetails, error) {
	form.Name = strings.TrimSpace(form.Name)
	form.Phone = strings.TrimSpace(form.Phone)
	form.Email = strings.TrimSpace(form.Email)
	form.DoorNo = strings.TrimSpace(form.DoorNo)
	form.Area = strings.TrimSpace(form.Area)
	form.Landmark = strings.TrimSpace(form.Landmark)
	form.City = strings.TrimSpace(form.City)
	form.District = strings.TrimSpace(form.District)
	form.Pincode = strings.TrimSpace(form.Pincode)

	if err := validate.Struct(form); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return nil, err
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fieldMessage(fe)
		}
		return nil, &ValidationError{Fields: fields}
	}

	return &models.DeliveryDetails{
		Name:     form.Name,
		Phone:    form.Phone,
		Email:    form.Email,
		DoorNo:   form.DoorNo,
		Area:     form.Area,
		Landmark: form.Landmark,
		City:     form.City,
		District: form.District,
		Pincode:  form.Pincode,
		Address:  composeAddress(form),
	}, nil
}

// composeAddress joins the non-empty address parts in display order:
// door, area, landmark, then "city, district - pincode".
func composeAddress(form DeliveryForm) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{form.DoorNo, form.Area, form.Landmark} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	parts = append(parts, fmt.Sprintf("%s, %s - %s", form.City, form.District, form.Pincode))
	return strings.Join(parts, ", ")
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "Name":
		if fe.Tag() == "min" {
			return "Name must be at least 2 characters"
		}
		return "Full name is required"
	case "Phone":
		if fe.Tag() == "required" {
			return "Phone number is required"
		}
		return "Please enter a valid 10-digit mobile number"
	case "Email":
		if fe.Tag() == "required" {
			return "Email address is required"
		}
		return "Please enter a valid email address"
	case "City":
		return "City is required"
	case "District":
		return "District is required"
	case "Pincode":
		if fe.Tag() == "required" {
			return "Pincode is required"
		}
		return "Please enter a valid 6-digit pincode"
	default:
		return "Invalid value"
	}
}
