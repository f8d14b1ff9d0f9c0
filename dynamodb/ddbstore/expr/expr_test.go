package expr

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func s(v string) types.AttributeValue { return &types.AttributeValueMemberS{Value: v} }
func n(v string) types.AttributeValue { return &types.AttributeValueMemberN{Value: v} }

var stored = Item{
	"pk":  s("SUB#e1"),
	"_et": s("Subscription"),
	"_v":  n("3"),
	"tag": s("enterprise-plan"),
}

func TestEvalCondition_Builder(t *testing.T) {
	tests := []struct {
		name string
		cond expression.ConditionBuilder
		item Item
		want bool
	}{
		{
			name: "attribute_not_exists on missing item",
			cond: expression.AttributeNotExists(expression.Name("pk")),
			item: nil,
			want: true,
		},
		{
			name: "attribute_not_exists on stored item",
			cond: expression.AttributeNotExists(expression.Name("pk")),
			item: stored,
			want: false,
		},
		{
			name: "exists and entity type",
			cond: expression.AttributeExists(expression.Name("pk")).
				And(expression.Name("_et").Equal(expression.Value("Subscription"))),
			item: stored,
			want: true,
		},
		{
			name: "entity type mismatch",
			cond: expression.AttributeExists(expression.Name("pk")).
				And(expression.Name("_et").Equal(expression.Value("Account"))),
			item: stored,
			want: false,
		},
		{
			name: "version equality is numeric",
			cond: expression.Name("_v").Equal(expression.Value(3)),
			item: stored,
			want: true,
		},
		{
			name: "stale version",
			cond: expression.AttributeExists(expression.Name("pk")).
				And(expression.Name("_et").Equal(expression.Value("Subscription")), expression.Name("_v").Equal(expression.Value(2))),
			item: stored,
			want: false,
		},
		{
			name: "or with not",
			cond: expression.Not(expression.Name("_v").LessThan(expression.Value(2))).
				Or(expression.AttributeNotExists(expression.Name("pk"))),
			item: stored,
			want: true,
		},
		{
			name: "begins_with",
			cond: expression.Name("tag").BeginsWith("enterprise"),
			item: stored,
			want: true,
		},
		{
			name: "between",
			cond: expression.Name("_v").Between(expression.Value(1), expression.Value(3)),
			item: stored,
			want: true,
		},
		{
			name: "in",
			cond: expression.Name("_et").In(expression.Value("Account"), expression.Value("Subscription")),
			item: stored,
			want: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			built, err := expression.NewBuilder().WithCondition(tt.cond).Build()
			require.NoError(t, err)
			got, err := Eval(*built.Condition(), built.Names(), built.Values(), tt.item)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCondition_Errors(t *testing.T) {
	for _, input := range []string{
		"",
		"a =",
		"(a = :v",
		"a.b = :v",
		"a ! :v",
		"attribute_exists(a",
	} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseCondition(input)
			assert.Error(t, err)
		})
	}
}

func TestEval_UndefinedPlaceholder(t *testing.T) {
	_, err := Eval("#missing = :v", Names{}, Values{":v": s("x")}, stored)
	require.Error(t, err)
	_, err = Eval("pk = :missing", nil, Values{}, stored)
	require.Error(t, err)
}

func TestUpdate_Builder(t *testing.T) {
	update := expression.Set(expression.Name("tag"), expression.Value("small-team")).
		Set(expression.Name("_ct"), expression.IfNotExists(expression.Name("_ct"), expression.Value(1000))).
		Add(expression.Name("_v"), expression.Value(1)).
		Remove(expression.Name("obsolete"))
	built, err := expression.NewBuilder().WithUpdate(update).Build()
	require.NoError(t, err)

	u, err := ParseUpdate(*built.Update())
	require.NoError(t, err)

	item := Item{"pk": s("SUB#e1"), "_v": n("3"), "_ct": n("5"), "obsolete": s("x")}
	res, err := u.Apply(built.Names(), built.Values(), item)
	require.NoError(t, err)

	assert.Equal(t, s("small-team"), res.Item["tag"])
	assert.Equal(t, n("5"), res.Item["_ct"], "if_not_exists keeps the stored value")
	assert.Equal(t, n("4"), res.Item["_v"])
	assert.NotContains(t, res.Item, "obsolete")
	assert.Equal(t, []string{"_ct", "_v", "obsolete", "tag"}, res.Updated)
	assert.Contains(t, item, "obsolete", "input item is not modified")
}

func TestUpdate_AddOnMissingAttribute(t *testing.T) {
	u, err := ParseUpdate("ADD #v :one SET #ct = if_not_exists(#ct, :now)")
	require.NoError(t, err)
	res, err := u.Apply(Names{"#v": "_v", "#ct": "_ct"}, Values{":one": n("1"), ":now": n("42")}, Item{})
	require.NoError(t, err)
	assert.Equal(t, n("1"), res.Item["_v"])
	assert.Equal(t, n("42"), res.Item["_ct"])
}

func TestUpdate_Arithmetic(t *testing.T) {
	u, err := ParseUpdate("SET a = a + :d, b = :x - b")
	require.NoError(t, err)
	res, err := u.Apply(nil, Values{":d": n("1.5"), ":x": n("10")}, Item{"a": n("2"), "b": n("4")})
	require.NoError(t, err)
	assert.Equal(t, n("3.5"), res.Item["a"])
	assert.Equal(t, n("6"), res.Item["b"])
}

func TestUpdate_Sets(t *testing.T) {
	u, err := ParseUpdate("ADD tags :add DELETE gone :del")
	require.NoError(t, err)
	res, err := u.Apply(nil, Values{
		":add": &types.AttributeValueMemberSS{Value: []string{"b", "c"}},
		":del": &types.AttributeValueMemberSS{Value: []string{"x"}},
	}, Item{
		"tags": &types.AttributeValueMemberSS{Value: []string{"a", "b"}},
		"gone": &types.AttributeValueMemberSS{Value: []string{"x"}},
	})
	require.NoError(t, err)
	assert.Equal(t, &types.AttributeValueMemberSS{Value: []string{"a", "b", "c"}}, res.Item["tags"])
	assert.NotContains(t, res.Item, "gone")
}

func TestParseUpdate_Errors(t *testing.T) {
	for _, input := range []string{
		"",
		"SET",
		"SET a = :v SET b = :w",
		"UPSERT a = :v",
		"ADD a b",
	} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseUpdate(input)
			assert.Error(t, err)
		})
	}
}

func TestParseKeyCondition(t *testing.T) {
	tests := []struct {
		name    string
		cond    expression.KeyConditionBuilder
		match   []string
		noMatch []string
	}{
		{
			name:  "partition only",
			cond:  expression.KeyEqual(expression.Key("pk"), expression.Value("SUB#e1")),
			match: []string{"anything"},
		},
		{
			name: "begins_with",
			cond: expression.KeyEqual(expression.Key("pk"), expression.Value("SUB#e1")).
				And(expression.KeyBeginsWith(expression.Key("sk"), "2024#")),
			match:   []string{"2024#01", "2024#"},
			noMatch: []string{"2023#12", "2024"},
		},
		{
			name: "less than",
			cond: expression.KeyEqual(expression.Key("pk"), expression.Value("SUB#e1")).
				And(expression.KeyLessThan(expression.Key("sk"), expression.Value("B"))),
			match:   []string{"A", "AZ"},
			noMatch: []string{"B", "C"},
		},
		{
			name: "between",
			cond: expression.KeyEqual(expression.Key("pk"), expression.Value("SUB#e1")).
				And(expression.KeyBetween(expression.Key("sk"), expression.Value("B"), expression.Value("D"))),
			match:   []string{"B", "C", "D"},
			noMatch: []string{"A", "E"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			built, err := expression.NewBuilder().WithKeyCondition(tt.cond).Build()
			require.NoError(t, err)
			kc, err := ParseKeyCondition(*built.KeyCondition(), built.Names(), built.Values(), "pk", "sk")
			require.NoError(t, err)
			assert.Equal(t, s("SUB#e1"), kc.PartitionValue)
			for _, m := range tt.match {
				assert.True(t, kc.Sort.Match(s(m)), m)
			}
			for _, m := range tt.noMatch {
				assert.False(t, kc.Sort.Match(s(m)), m)
			}
		})
	}
}

func TestParseKeyCondition_Errors(t *testing.T) {
	values := Values{":p": s("p"), ":s": s("s")}
	tests := map[string]string{
		"missing partition":   "sk = :s",
		"partition range":     "pk > :p",
		"not a key":           "pk = :p AND other = :s",
		"three terms":         "pk = :p AND sk = :s AND sk = :s",
		"compare with a path": "pk = sk",
		"or":                  "pk = :p OR sk = :s",
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseKeyCondition(input, nil, values, "pk", "sk")
			assert.Error(t, err)
		})
	}
}
