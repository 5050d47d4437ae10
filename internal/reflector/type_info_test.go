package reflector

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

type testStruct struct {
	Name string
}

func TestTypeInfoOf(t *testing.T) {
	ti := TypeInfoOf(testStruct{Name: "test"})
	require.Equal(t, "github.com/codewandler/mbox-go/internal/reflector.testStruct", ti.Name)
	require.Equal(t, "testStruct", ti.Type.Name())
}

func TestTypeInfoOf_Pointer(t *testing.T) {
	ti := TypeInfoOf(&testStruct{})
	require.Equal(t, "github.com/codewandler/mbox-go/internal/reflector.testStruct", ti.Name)
	require.NotEqual(t, reflect.Pointer, ti.Type.Kind())
}

func TestTypeInfoFor_Builtin(t *testing.T) {
	require.Equal(t, "int", TypeInfoFor[int]().Name)
	require.Equal(t, "[]string", TypeInfoFor[[]string]().Name)
	require.Equal(t, "map[string]int", TypeInfoFor[map[string]int]().Name)
}

func TestTypeInfoOf_Nil(t *testing.T) {
	require.Equal(t, TypeInfo{}, TypeInfoOf(nil))
}

func TestSignature(t *testing.T) {
	require.Equal(t, "()", Signature())
	require.Equal(t, "(int, string)", Signature(reflect.TypeFor[int](), reflect.TypeFor[string]()))
	require.Equal(t, "(*reflector.testStruct)", Signature(reflect.TypeFor[*testStruct]()))
}
