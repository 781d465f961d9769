package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallhq/recall/internal/rerrors"
	"github.com/recallhq/recall/internal/types"
)

func TestLanguageForPath(t *testing.T) {
	assert.Equal(t, types.LanguagePython, LanguageForPath("a/b/foo.py"))
	assert.Equal(t, types.LanguageCPP, LanguageForPath("foo.hpp"))
	assert.Equal(t, types.LanguageUnknown, LanguageForPath("foo.xyz"))
}

func TestParseUnknownExtensionIsNotAnError(t *testing.T) {
	r := NewRegistry()
	defer r.Close()
	res, err := r.Parse(context.Background(), "README.xyz", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, types.LanguageUnknown, res.Language)
	assert.Empty(t, res.Units)
}

func TestParsePythonFunctionsAndClasses(t *testing.T) {
	src := `
def foo(x):
    return x

class Bar:
    def method_one(self):
        return 1

    def method_two(self):
        return 2
`
	r := NewRegistry()
	defer r.Close()
	res, err := r.Parse(context.Background(), "mod.py", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, types.LanguagePython, res.Language)

	var gotClass, gotFunc bool
	methods := 0
	for _, u := range res.Units {
		switch {
		case u.UnitType == types.UnitTypeClass && u.Name == "Bar":
			gotClass = true
		case u.UnitType == types.UnitTypeFunction && u.Name == "foo":
			gotFunc = true
		case u.UnitType == types.UnitTypeMethod:
			methods++
		}
	}
	assert.True(t, gotClass, "expected class Bar")
	assert.True(t, gotFunc, "expected function foo")
	assert.Equal(t, 2, methods, "expected two methods inside Bar")
}

func TestParseGoFunctionsMethodsTypes(t *testing.T) {
	src := `
package demo

type Widget struct {
	Name string
}

func NewWidget() *Widget {
	return &Widget{}
}

func (w *Widget) Label() string {
	return w.Name
}
`
	r := NewRegistry()
	defer r.Close()
	res, err := r.Parse(context.Background(), "widget.go", []byte(src))
	require.NoError(t, err)

	var names []string
	for _, u := range res.Units {
		names = append(names, string(u.UnitType)+":"+u.Name)
	}
	assert.Contains(t, names, "class:Widget")
	assert.Contains(t, names, "function:NewWidget")
	assert.Contains(t, names, "method:Label")
}

func TestParseMalformedJSONFails(t *testing.T) {
	r := NewRegistry()
	defer r.Close()
	_, err := r.Parse(context.Background(), "bad.json", []byte(`{ invalid json }`))
	require.Error(t, err)
	assert.True(t, rerrors.IsParseError(err))
}

func TestParseJSONTopLevelSections(t *testing.T) {
	r := NewRegistry()
	defer r.Close()
	res, err := r.Parse(context.Background(), "config.json", []byte(`{"a": 1, "b": {"c": 2}}`))
	require.NoError(t, err)
	names := map[string]bool{}
	for _, u := range res.Units {
		assert.Equal(t, types.UnitTypeSection, u.UnitType)
		names[u.Name] = true
	}
	assert.True(t, names["a"])
	assert.True(t, names["b"])
}

func TestParseMalformedYAMLIsBestEffort(t *testing.T) {
	r := NewRegistry()
	defer r.Close()
	res, err := r.Parse(context.Background(), "bad.yaml", []byte("a: [1, 2\n"))
	require.NoError(t, err)
	assert.Empty(t, res.Units)
}

func TestParseSQLBestEffort(t *testing.T) {
	r := NewRegistry()
	defer r.Close()
	src := `
CREATE TABLE users (id INT, name TEXT);
CREATE VIEW active_users AS SELECT * FROM users;
CREATE FUNCTION total_users() RETURNS INT AS $$ SELECT COUNT(*) FROM users; $$;
`
	res, err := r.Parse(context.Background(), "schema.sql", []byte(src))
	require.NoError(t, err)

	var kinds = map[string]types.UnitType{}
	for _, u := range res.Units {
		kinds[u.Name] = u.UnitType
	}
	assert.Equal(t, types.UnitTypeClass, kinds["users"])
	assert.Equal(t, types.UnitTypeClass, kinds["active_users"])
	assert.Equal(t, types.UnitTypeFunction, kinds["total_users"])
}

func TestParseDeterministic(t *testing.T) {
	r := NewRegistry()
	defer r.Close()
	src := []byte("def foo():\n    pass\n")
	a, err := r.Parse(context.Background(), "m.py", src)
	require.NoError(t, err)
	b, err := r.Parse(context.Background(), "m.py", src)
	require.NoError(t, err)
	require.Len(t, a.Units, 1)
	require.Len(t, b.Units, 1)
	assert.Equal(t, a.Units[0].ContentHash, b.Units[0].ContentHash)
	assert.Equal(t, a.Units[0].Name, b.Units[0].Name)
}

func TestParseRubyBestEffort(t *testing.T) {
	src := `
class Greeter
  def hello(name)
    puts name
  end
end
`
	r := NewRegistry()
	defer r.Close()
	res, err := r.Parse(context.Background(), "greeter.rb", []byte(src))
	require.NoError(t, err)
	var names []string
	for _, u := range res.Units {
		names = append(names, string(u.UnitType)+":"+u.Name)
	}
	assert.Contains(t, names, "class:Greeter")
	assert.Contains(t, names, "function:hello")
}
