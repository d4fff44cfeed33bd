package repair_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-substrate/json-repair/jrerr"
	"github.com/lattice-substrate/json-repair/repair"
)

func mustRepair(t *testing.T, in string) string {
	t.Helper()
	out, err := repair.Repair(in)
	require.NoError(t, err, "repair %q", in)
	return out
}

func mustRepairErr(t *testing.T, in string) *jrerr.Error {
	t.Helper()
	_, err := repair.Repair(in)
	require.Error(t, err, "expected error for %q", in)
	var je *jrerr.Error
	require.True(t, errors.As(err, &je), "expected *jrerr.Error, got %T: %v", err, err)
	return je
}

type vector struct {
	in   string
	want string
}

func runVectors(t *testing.T, cases []vector) {
	t.Helper()
	for _, tc := range cases {
		got := mustRepair(t, tc.in)
		assert.Equal(t, tc.want, got, "repair(%q)", tc.in)
		assert.True(t, json.Valid([]byte(got)), "repair(%q) produced invalid JSON %q", tc.in, got)
	}
}

func TestRepairValidJSONUnchanged(t *testing.T) {
	cases := []string{
		`{"a":2.3e100,"b":"str","c":null,"d":false,"e":[1,2,3]}`,
		"  { \n } \t ",
		`{}`,
		`{"a": {}}`,
		`{"a": "b"}`,
		`{"a": 2}`,
		`[]`,
		`[{}]`,
		`{"a":[]}`,
		`[1, "hi", true, false, null, {}, []]`,
		`23`, `0`, `0e+2`, `0.0`, `-0`, `2.3`, `2300e3`, `2300e+3`, `2300e-3`, `-2`, `2e-3`, `2.3e-3`,
		`"str"`,
		`"\"\\\/\b\f\n\r\t"`,
		`"\u260E"`,
		`true`, `false`, `null`,
		`""`, `"["`, `"]"`, `"{"`, `"}"`, `":"`, `","`,
		"\"\u2605\"",
		"\"\U0001F600\"",
		`"\ud83d\ude00"`,
		"{\"\u2605\":true}",
		`{"\u2605":true}`,
		"{\"\U0001F600\":true}",
		"\"she said \u201Chi\u201D\"",
		"[\"it\u2019s\"]",
	}
	for _, in := range cases {
		assert.Equal(t, in, mustRepair(t, in), "valid input must pass through")
	}
}

func TestRepairMissingQuotes(t *testing.T) {
	runVectors(t, []vector{
		{`abc`, `"abc"`},
		{`hello   world`, `"hello   world"`},
		{`{a:2}`, `{"a":2}`},
		{`{a: 2}`, `{"a": 2}`},
		{`{2: 2}`, `{"2": 2}`},
		{`{true: 2}`, `{"true": 2}`},
		{"{\n  a: 2\n}", "{\n  \"a\": 2\n}"},
		{`[a,b]`, `["a","b"]`},
		{"[\na,\nb\n]", "[\n\"a\",\n\"b\"\n]"},
	})
}

func TestRepairMissingEndQuote(t *testing.T) {
	runVectors(t, []vector{
		{`"abc`, `"abc"`},
		{`'abc`, `"abc"`},
		{"\u2018abc", `"abc"`},
	})
}

func TestRepairQuoteNormalization(t *testing.T) {
	runVectors(t, []vector{
		{`{'a':2}`, `{"a":2}`},
		{`{'a':'foo'}`, `{"a":"foo"}`},
		{`{"a":'foo'}`, `{"a":"foo"}`},
		{`{a:'foo',b:'bar'}`, `{"a":"foo","b":"bar"}`},
		{"{\u201Ca\u201D:\u201Cb\u201D}", `{"a":"b"}`},
		{"{\u2018a\u2019:\u2018b\u2019}", `{"a":"b"}`},
		{"{`a\u00B4:`b\u00B4}", `{"a":"b"}`},
		{"\u2018foo\u2019", `"foo"`},
		{"\u201Cfoo\u201D", `"foo"`},
		{"`foo\u00B4", `"foo"`},
		{"`foo'", `"foo"`},
	})
}

func TestRepairLeavesStringContentUntouched(t *testing.T) {
	runVectors(t, []vector{
		{`"{a:b}"`, `"{a:b}"`},
		{`"/* foo */"`, `"/* foo */"`},
		{`"[1,2,3,]"`, `"[1,2,3,]"`},
		{`"{a:2,}"`, `"{a:2,}"`},
	})
}

func TestRepairEscapes(t *testing.T) {
	runVectors(t, []vector{
		{`"foo'bar"`, `"foo'bar"`},
		{`"foo\"bar"`, `"foo\"bar"`},
		{`'foo"bar'`, `"foo\"bar"`},
		{`'foo\'bar'`, `"foo'bar"`},
		{`"foo\'bar"`, `"foo'bar"`},
		{`"\a"`, `"a"`},
		{`"abc\`, `"abc"`},
		{`'a\\"b'`, `"a\\\"b"`},
	})
}

func TestRepairControlCharacters(t *testing.T) {
	runVectors(t, []vector{
		{"\"hello\bworld\"", `"hello\bworld"`},
		{"\"hello\fworld\"", `"hello\fworld"`},
		{"\"hello\nworld\"", `"hello\nworld"`},
		{"\"hello\rworld\"", `"hello\rworld"`},
		{"\"hello\tworld\"", `"hello\tworld"`},
		{"{\"value\n\": \"dc=hcm,dc=com\"}", `{"value\n": "dc=hcm,dc=com"}`},
		{"\"line\\\ncontinued\"", `"line\ncontinued"`},
	})
}

func TestRepairSpecialWhitespace(t *testing.T) {
	runVectors(t, []vector{
		{"{\"a\":\u00a0\"foo\u00a0bar\"}", "{\"a\": \"foo\u00a0bar\"}"},
		{"{\"a\":\u202F\"foo\"}", `{"a": "foo"}`},
		{"{\"a\":\u205F\"foo\"}", `{"a": "foo"}`},
		{"{\"a\":\u3000\"foo\"}", `{"a": "foo"}`},
		{"{\"a\":\u2009\"foo\"}", `{"a": "foo"}`},
	})
}

func TestRepairComments(t *testing.T) {
	runVectors(t, []vector{
		{`/* foo */ {}`, ` {}`},
		{`{} /* foo */ `, `{}  `},
		{`{} /* foo `, `{} `},
		{"\n/* foo */\n{}", "\n\n{}"},
		{`{"a":"foo",/*hello*/"b":"bar"}`, `{"a":"foo","b":"bar"}`},
		{`{} // comment`, `{} `},
		{"{\n\"a\":\"foo\",//hello\n\"b\":\"bar\"\n}", "{\n\"a\":\"foo\",\n\"b\":\"bar\"\n}"},
	})
}

func TestRepairJSONP(t *testing.T) {
	runVectors(t, []vector{
		{`callback_123({});`, `{}`},
		{`callback_123([]);`, `[]`},
		{`callback_123(2);`, `2`},
		{`callback_123("foo");`, `"foo"`},
		{`callback_123(null);`, `null`},
		{`callback_123(true);`, `true`},
		{`callback_123(false);`, `false`},
		{`callback({}`, `{}`},
		{`/* foo bar */ callback_123 ({})`, ` {}`},
		{"/* foo bar */\ncallback_123({})", "\n{}"},
		{`/* foo bar */ callback_123 (  {}  )`, `   {}  `},
		{`  /* foo bar */   callback_123({});  `, `     {}  `},
		{"\n/* foo\nbar */\ncallback_123 ({});\n\n", "\n\n{}\n\n"},
		{`callback()`, `null`},
	})

	je := mustRepairErr(t, `callback {}`)
	assert.Equal(t, jrerr.UnexpectedCharacter, je.Class)
	assert.Equal(t, `Unexpected character "{" at position 9`, je.Error())
}

func TestRepairEscapedStringContents(t *testing.T) {
	runVectors(t, []vector{
		{`\"hello world\"`, `"hello world"`},
		{`\"hello world\`, `"hello world"`},
		{`\"hello \\"world\\"\"`, `"hello \"world\""`},
		{`[\"hello \\"world\\"\"]`, `["hello \"world\""]`},
		{`{\"stringified\": \"hello \\"world\\"\"}`, `{"stringified": "hello \"world\""}`},
		{`[\"hello\, \"world\"]`, `["hello, ","world\\","]"]`},
		{`\"hello"`, `"hello"`},
	})
}

func TestRepairTrailingCommas(t *testing.T) {
	runVectors(t, []vector{
		{`[1,2,3,]`, `[1,2,3]`},
		{"[1,2,3,\n]", "[1,2,3\n]"},
		{"[1,2,3,  \n  ]", "[1,2,3  \n  ]"},
		{`[1,2,3,/*foo*/]`, `[1,2,3]`},
		{`{"array":[1,2,3,]}`, `{"array":[1,2,3]}`},
		{`{"a":2,}`, `{"a":2}`},
		{`{"a":2  ,  }`, `{"a":2    }`},
		{"{\"a\":2  , \n }", "{\"a\":2   \n }"},
		{`{"a":2/*foo*/,/*foo*/}`, `{"a":2}`},
		{`4,`, `4`},
		{`4 ,`, `4 `},
		{`4 , `, `4  `},
		{`{"a":2},`, `{"a":2}`},
		{`[1,2,3],`, `[1,2,3]`},
	})
}

func TestRepairMissingClosingBrace(t *testing.T) {
	runVectors(t, []vector{
		{`{`, `{}`},
		{`{"a":2`, `{"a":2}`},
		{`{"a":2,`, `{"a":2}`},
		{`{"a":{"b":2}`, `{"a":{"b":2}}`},
		{"{\n  \"a\":{\"b\":2\n}", "{\n  \"a\":{\"b\":2\n}}"},
		{`[{"b":2]`, `[{"b":2}]`},
		{"[{\"b\":2\n]", "[{\"b\":2}\n]"},
		{`[{"i":1{"i":2}]`, `[{"i":1},{"i":2}]`},
		{`[{"i":1,{"i":2}]`, `[{"i":1},{"i":2}]`},
	})
}

func TestRepairMissingClosingBracket(t *testing.T) {
	runVectors(t, []vector{
		{`[`, `[]`},
		{`[1,2,3`, `[1,2,3]`},
		{`[1,2,3,`, `[1,2,3]`},
		{`[[1,2,3,`, `[[1,2,3]]`},
		{"{\n\"values\":[1,2,3\n}", "{\n\"values\":[1,2,3]\n}"},
		{"{\n\"values\":[1,2,3\n", "{\n\"values\":[1,2,3]}\n"},
	})
}

func TestRepairMongoDBDataTypes(t *testing.T) {
	runVectors(t, []vector{
		{`NumberLong("2")`, `"2"`},
		{`{"_id":ObjectId("123")}`, `{"_id":"123"}`},
	})

	doc := "{\n" +
		"   \"_id\" : ObjectId(\"123\"),\n" +
		"   \"isoDate\" : ISODate(\"2012-12-19T06:01:17.171Z\"),\n" +
		"   \"regularNumber\" : 67,\n" +
		"   \"long\" : NumberLong(\"2\"),\n" +
		"   \"long2\" : NumberLong(2),\n" +
		"   \"int\" : NumberInt(\"3\"),\n" +
		"   \"int2\" : NumberInt(3),\n" +
		"   \"decimal\" : NumberDecimal(\"4\"),\n" +
		"   \"decimal2\" : NumberDecimal(4)\n" +
		"}"
	want := "{\n" +
		"   \"_id\" : \"123\",\n" +
		"   \"isoDate\" : \"2012-12-19T06:01:17.171Z\",\n" +
		"   \"regularNumber\" : 67,\n" +
		"   \"long\" : \"2\",\n" +
		"   \"long2\" : 2,\n" +
		"   \"int\" : \"3\",\n" +
		"   \"int2\" : 3,\n" +
		"   \"decimal\" : \"4\",\n" +
		"   \"decimal2\" : 4\n" +
		"}"
	assert.Equal(t, want, mustRepair(t, doc))
}

func TestRepairFunctionCallKeys(t *testing.T) {
	runVectors(t, []vector{
		{`{f(x): 1}`, `{"x": 1}`},
		{`{ObjectId("a"): 1}`, `{"a": 1}`},
		{`{NumberInt(3): true}`, `{"3": true}`},
		{`{a: 1, f('b'): 2}`, `{"a": 1, "b": 2}`},
		{`{f(g(x)): 1}`, `{"x": 1}`},
	})
}

func TestRepairPythonConstants(t *testing.T) {
	runVectors(t, []vector{
		{`True`, `true`},
		{`False`, `false`},
		{`None`, `null`},
		{`[True, None, False]`, `[true, null, false]`},
	})
}

func TestRepairUnknownSymbols(t *testing.T) {
	runVectors(t, []vector{
		{`foo`, `"foo"`},
		{`[1,foo,4]`, `[1,"foo",4]`},
		{`{foo: bar}`, `{"foo": "bar"}`},
		{`foo 2 bar`, `"foo 2 bar"`},
		{`{greeting: hello world}`, `{"greeting": "hello world"}`},
		{"{greeting: hello world\nnext: \"line\"}", "{\"greeting\": \"hello world\",\n\"next\": \"line\"}"},
		{`{greeting: hello world!}`, `{"greeting": "hello world!"}`},
		{`{path: C\temp}`, `{"path": "C\\temp"}`},
		{`[.5]`, `[".5"]`},
		{`[example]`, `["example"]`},
	})
}

func TestRepairConcatenatedStrings(t *testing.T) {
	runVectors(t, []vector{
		{`"hello" + " world"`, `"hello world"`},
		{"\"hello\" +\n \" world\"", `"hello world"`},
		{`"a"+"b"+"c"`, `"abc"`},
		{`"hello" + /*comment*/ " world"`, `"hello world"`},
		{"{\n  \"greeting\": 'hello' +\n 'world'\n}", "{\n  \"greeting\": \"helloworld\"\n}"},
		{`"a" +`, `"a"`},
	})
}

func TestRepairMissingComma(t *testing.T) {
	runVectors(t, []vector{
		{`{"array": [{}{}]}`, `{"array": [{},{}]}`},
		{`{"array": [{} {}]}`, `{"array": [{}, {}]}`},
		{"{\"array\": [{}\n{}]}", "{\"array\": [{},\n{}]}"},
		{"{\"array\": [\n{}\n{}\n]}", "{\"array\": [\n{},\n{}\n]}"},
		{"{\"array\": [\n1\n2\n]}", "{\"array\": [\n1,\n2\n]}"},
		{"{\"array\": [\n\"a\"\n\"b\"\n]}", "{\"array\": [\n\"a\",\n\"b\"\n]}"},
		{"[\n{},\n{}\n]", "[\n{},\n{}\n]"},
		{"{\"a\":2\n\"b\":3\nc:4}", "{\"a\":2,\n\"b\":3,\n\"c\":4}"},
	})
}

func TestRepairMissingColon(t *testing.T) {
	runVectors(t, []vector{
		{`{"a" "b"}`, `{"a": "b"}`},
		{`{"a" 2}`, `{"a": 2}`},
		{"{\n\"a\" \"b\"\n}", "{\n\"a\": \"b\"\n}"},
		{`{"a" 'b'}`, `{"a": "b"}`},
		{`{'a' 'b'}`, `{"a": "b"}`},
		{"{\u201Ca\u201D \u201Cb\u201D}", `{"a": "b"}`},
		{`{a 'b'}`, `{"a": "b"}`},
		{"{a \u201Cb\u201D}", `{"a": "b"}`},
	})
}

func TestRepairCombinedRepairs(t *testing.T) {
	runVectors(t, []vector{
		{"{\"array\": [\na\nb\n]}", "{\"array\": [\n\"a\",\n\"b\"\n]}"},
		{"1\n2", "[\n1,\n2\n]"},
		{"[a,b\nc]", "[\"a\",\"b\",\n\"c\"]"},
	})
}

func TestRepairNewlineDelimitedJSON(t *testing.T) {
	runVectors(t, []vector{
		{"{}\n{}\n", "[\n{},\n{}\n\n]"},
		{"/* 1 */\n{}\n\n/* 2 */\n{}\n\n/* 3 */\n{}\n", "[\n\n{},\n\n\n{},\n\n\n{}\n\n]"},
		{"/* 1 */\n{},\n\n/* 2 */\n{},\n\n/* 3 */\n{}\n", "[\n\n{},\n\n\n{},\n\n\n{}\n\n]"},
		{"/* 1 */\n{},\n\n/* 2 */\n{},\n\n/* 3 */\n{},\n", "[\n\n{},\n\n\n{},\n\n\n{}\n\n]"},
		{`1,2,3`, "[\n1,2,3\n]"},
		{`1,2,3,`, "[\n1,2,3\n]"},
		{"1\n2\n3", "[\n1,\n2,\n3\n]"},
		{"a\nb", "[\n\"a\",\n\"b\"\n]"},
		{`a,b`, "[\n\"a\",\"b\"\n]"},
	})
}

func TestRepairErrors(t *testing.T) {
	cases := []struct {
		in       string
		class    jrerr.Class
		message  string
		position int
	}{
		{``, jrerr.UnexpectedEnd, `Unexpected end of json string`, 0},
		{`   `, jrerr.UnexpectedEnd, `Unexpected end of json string`, 3},
		{`{"a",`, jrerr.ColonExpected, `Colon expected`, 4},
		{`{:2}`, jrerr.ObjectKeyExpected, `Object key expected`, 1},
		{`{"a":2,]`, jrerr.UnexpectedCharacter, `Unexpected character "]"`, 7},
		{`{"a" ]`, jrerr.ColonExpected, `Colon expected`, 5},
		{`{"a":}`, jrerr.ObjectValueExpected, `Object value expected`, 5},
		{`{}}`, jrerr.UnexpectedCharacter, `Unexpected character "}"`, 2},
		{`[2,}`, jrerr.UnexpectedCharacter, `Unexpected character "}"`, 3},
		{`2.3.4`, jrerr.UnexpectedCharacter, `Unexpected character "."`, 3},
		{`2..3`, jrerr.InvalidNumber, `Invalid number '2.', expecting a digit but got '.'`, 2},
		{`2e3.4`, jrerr.UnexpectedCharacter, `Unexpected character "."`, 3},
		{`2e`, jrerr.InvalidNumber, `Invalid number '2e', expecting a digit but reached end of input`, 2},
		{`-`, jrerr.InvalidNumber, `Invalid number '-', expecting a digit but reached end of input`, 1},
		{`foo [`, jrerr.UnexpectedCharacter, `Unexpected character "["`, 4},
		{`"\u26"`, jrerr.InvalidUnicodeCharacter, `Invalid unicode character "\u26"`, 1},
		{`"\uZ000"`, jrerr.InvalidUnicodeCharacter, `Invalid unicode character "\uZ000"`, 1},
		{"\"a\x01b\"", jrerr.InvalidCharacter, `Invalid character "\u0001"`, 2},
		{`{f({}): 1}`, jrerr.ObjectKeyExpected, `Object key expected`, 1},
		{`{a: 1, f([2]): 3}`, jrerr.ObjectKeyExpected, `Object key expected`, 7},
	}
	for _, tc := range cases {
		je := mustRepairErr(t, tc.in)
		assert.Equal(t, tc.class, je.Class, "class for %q", tc.in)
		assert.Equal(t, tc.message, je.Message, "message for %q", tc.in)
		assert.Equal(t, tc.position, je.Position, "position for %q", tc.in)
	}
}

func TestRepairPositionsCountCodePoints(t *testing.T) {
	je := mustRepairErr(t, "[\"\u2605\"] }")
	assert.Equal(t, 6, je.Position)
}

func TestRepairDepthLimit(t *testing.T) {
	in := strings.Repeat("[", 20) + strings.Repeat("]", 20)
	out, err := repair.RepairWithOptions(in, &repair.Options{MaxDepth: 20})
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = repair.RepairWithOptions(in, &repair.Options{MaxDepth: 19})
	var je *jrerr.Error
	require.ErrorAs(t, err, &je)
	assert.Equal(t, jrerr.BoundExceeded, je.Class)
	assert.Equal(t, 19, je.Position)

	_, err = repair.Repair(strings.Repeat("f(", repair.DefaultMaxDepth+1))
	require.ErrorAs(t, err, &je)
	assert.Equal(t, jrerr.BoundExceeded, je.Class)
}

func TestRepairInputSizeLimit(t *testing.T) {
	_, err := repair.RepairWithOptions(`[1,2,3]`, &repair.Options{MaxInputSize: 4})
	var je *jrerr.Error
	require.ErrorAs(t, err, &je)
	assert.Equal(t, jrerr.BoundExceeded, je.Class)
	assert.Equal(t, 0, je.Position)
}

func TestRepairBytes(t *testing.T) {
	out, err := repair.RepairBytes([]byte(`{a:1}`), nil)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":1}`), out)

	_, err = repair.RepairBytes(nil, nil)
	require.Error(t, err)
}

func TestRepairIsIdempotent(t *testing.T) {
	inputs := []string{
		`{a:'foo', b: [1,2,3,], c: None}`,
		"/* 1 */\n{}\n\n/* 2 */\n{}\n",
		`callback_123({"a": True});`,
		`"hello" + " world"`,
		`[\"hello\, \"world\"]`,
		`{"a":2`,
		"{greeting: hello world\nnext: \"line\"}",
	}
	for _, in := range inputs {
		once := mustRepair(t, in)
		assert.Equal(t, once, mustRepair(t, once), "repair must be idempotent for %q", in)
	}
}

func TestRepairConcurrentCalls(t *testing.T) {
	inputs := []vector{
		{`{a:1}`, `{"a":1}`},
		{`[1,2,`, `[1,2]`},
		{`'x'`, `"x"`},
		{`None`, `null`},
	}
	done := make(chan struct{})
	for w := 0; w < 8; w++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 200; i++ {
				tc := inputs[i%len(inputs)]
				out, err := repair.Repair(tc.in)
				if err != nil || out != tc.want {
					t.Errorf("repair(%q) = %q, %v", tc.in, out, err)
					return
				}
			}
		}()
	}
	for w := 0; w < 8; w++ {
		<-done
	}
}
