package script

// SetTitle returns an UpdateSetter that sets the pending version's title.
func SetTitle(title string) UpdateSetter {
	return func(v *ScriptVersion) error {
		if title == "" {
			return ErrInvalidTitle
		}
		v.Title = title
		return nil
	}
}

// SetLanguage returns an UpdateSetter that sets the pending version's language.
func SetLanguage(language Language) UpdateSetter {
	return func(v *ScriptVersion) error {
		if !language.IsValid() {
			return ErrInvalidLanguage
		}
		v.Language = language
		return nil
	}
}

// SetCode returns an UpdateSetter that sets the pending version's code.
func SetCode(code string) UpdateSetter {
	return func(v *ScriptVersion) error {
		if code == "" {
			return ErrInvalidCode
		}
		v.Code = code
		return nil
	}
}

// SetDescription returns an UpdateSetter that sets the pending version's description.
func SetDescription(description string) UpdateSetter {
	return func(v *ScriptVersion) error {
		v.Description = description
		return nil
	}
}
