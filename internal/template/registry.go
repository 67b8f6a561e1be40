package template

import "fmt"

// registry holds named templates. Template rendering is treated as an
// opaque function of (template_name, context) -> string by the rest of the
// system; this registry is the one place that opacity is resolved.
var registry = map[string]string{}

// MustRegister adds a named template body, panicking on duplicate
// registration (a programmer error caught at init time, not runtime).
func MustRegister(name, body string) {
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("template %q already registered", name))
	}
	registry[name] = body
}

// Render looks up the named template and substitutes {{variable}}
// placeholders from context, the same Mustache-style substitution
// RenderPrompt performs.
func Render(name string, context map[string]string) (string, error) {
	body, ok := registry[name]
	if !ok {
		return "", fmt.Errorf("template %q is not registered", name)
	}
	return RenderPrompt(body, context), nil
}
