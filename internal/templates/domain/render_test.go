package domain

import "testing"

func TestRender(t *testing.T) {
	cases := []struct {
		name      string
		text      string
		variables []string
		values    map[string]string
		want      string
	}{
		{
			name:      "substitutes declared variables",
			text:      "Hello {{firstName}}, your appointment is on {{date}}.",
			variables: []string{"firstName", "date"},
			values:    map[string]string{"firstName": "Amina", "date": "March 3"},
			want:      "Hello Amina, your appointment is on March 3.",
		},
		{
			name:      "missing value renders empty",
			text:      "Hello {{firstName}}{{suffix}}",
			variables: []string{"firstName", "suffix"},
			values:    map[string]string{"firstName": "Amina"},
			want:      "Hello Amina",
		},
		{
			name:      "undeclared placeholder left intact",
			text:      "Hello {{firstName}}, see {{unknownVar}}",
			variables: []string{"firstName"},
			values:    map[string]string{"firstName": "Amina", "unknownVar": "x"},
			want:      "Hello Amina, see {{unknownVar}}",
		},
		{
			name:      "repeated placeholder substituted everywhere",
			text:      "{{name}} and {{name}} again",
			variables: []string{"name"},
			values:    map[string]string{"name": "Lee"},
			want:      "Lee and Lee again",
		},
		{
			name: "no variables returns text unchanged",
			text: "static {{body}}",
			want: "static {{body}}",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Render(tc.text, tc.variables, tc.values); got != tc.want {
				t.Errorf("Render = %q, want %q", got, tc.want)
			}
		})
	}
}
