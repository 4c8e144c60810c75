package models

import "github.com/go-playground/validator/v10"

// validate is safe for concurrent use and caches struct metadata.
var validate = validator.New(validator.WithRequiredStructEnabled())
