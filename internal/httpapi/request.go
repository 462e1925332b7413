// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Physical AI Textbook Contributors

package httpapi

import (
	"fmt"

	"github.com/physicalai/authd/internal/auth"
)

type registerRequest struct {
	Email              string  `json:"email"`
	Name               string  `json:"name"`
	Password           string  `json:"password"`
	SoftwareBackground string  `json:"software_background"`
	HardwareBackground string  `json:"hardware_background"`
	LearningGoal       *string `json:"learning_goal"`
}

// validate collects every offending field rather than stopping at the first.
func (r *registerRequest) validate() []FieldError {
	var fields []FieldError
	fields = appendEmailErrors(fields, r.Email)
	if r.Name == "" {
		fields = append(fields, FieldError{Field: "name", Message: "Name is required"})
	}
	fields = appendPasswordErrors(fields, r.Password)
	if !auth.SoftwareBackground(r.SoftwareBackground).Valid() {
		fields = append(fields, FieldError{
			Field:   "software_background",
			Message: "Must be one of Beginner, Intermediate, Advanced",
		})
	}
	if !auth.HardwareBackground(r.HardwareBackground).Valid() {
		fields = append(fields, FieldError{
			Field:   "hardware_background",
			Message: "Must be one of None, Arduino, RaspberryPi",
		})
	}
	return fields
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *loginRequest) validate() []FieldError {
	var fields []FieldError
	fields = appendEmailErrors(fields, r.Email)
	fields = appendPasswordErrors(fields, r.Password)
	return fields
}

type profileRequest struct {
	SoftwareBackground *string `json:"software_background"`
	HardwareBackground *string `json:"hardware_background"`
	LearningGoal       *string `json:"learning_goal"`
}

func (r *profileRequest) validate() []FieldError {
	var fields []FieldError
	if r.SoftwareBackground != nil && !auth.SoftwareBackground(*r.SoftwareBackground).Valid() {
		fields = append(fields, FieldError{
			Field:   "software_background",
			Message: "Must be one of Beginner, Intermediate, Advanced",
		})
	}
	if r.HardwareBackground != nil && !auth.HardwareBackground(*r.HardwareBackground).Valid() {
		fields = append(fields, FieldError{
			Field:   "hardware_background",
			Message: "Must be one of None, Arduino, RaspberryPi",
		})
	}
	return fields
}

// update converts the request into a partial profile update. Omitted
// backgrounds keep their stored values; learning_goal is written as sent,
// absence clearing it.
func (r *profileRequest) update() auth.ProfileUpdate {
	upd := auth.ProfileUpdate{LearningGoal: r.LearningGoal}
	if r.SoftwareBackground != nil {
		sw := auth.SoftwareBackground(*r.SoftwareBackground)
		upd.SoftwareBackground = &sw
	}
	if r.HardwareBackground != nil {
		hw := auth.HardwareBackground(*r.HardwareBackground)
		upd.HardwareBackground = &hw
	}
	return upd
}

func appendEmailErrors(fields []FieldError, email string) []FieldError {
	if email == "" {
		return append(fields, FieldError{Field: "email", Message: "Email is required"})
	}
	if err := auth.ValidateEmail(email); err != nil {
		return append(fields, FieldError{Field: "email", Message: "Invalid email format"})
	}
	return fields
}

func appendPasswordErrors(fields []FieldError, password string) []FieldError {
	if password == "" {
		return append(fields, FieldError{Field: "password", Message: "Password is required"})
	}
	if err := auth.ValidatePassword(password); err != nil {
		return append(fields, FieldError{
			Field:   "password",
			Message: fmt.Sprintf("Password must be at least %d characters long", auth.MinPasswordLength),
		})
	}
	return fields
}
