package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCognitiveStack(t *testing.T) {
	cases := map[string][8]string{
		"INTJ": {"Ni", "Te", "Fi", "Se", "Ne", "Ti", "Fe", "Si"},
		"ENFP": {"Ne", "Fi", "Te", "Si", "Ni", "Fe", "Ti", "Se"},
		"ESFJ": {"Fe", "Si", "Ne", "Ti", "Fi", "Se", "Ni", "Te"},
		"ISTP": {"Ti", "Se", "Ni", "Fe", "Te", "Si", "Ne", "Fi"},
	}

	for mbti, want := range cases {
		assert.Equal(t, want, cognitiveStack(mbti), mbti)
	}
}

func TestCognitiveStackCoversAllFunctions(t *testing.T) {
	for _, mbti := range mbtiTypes {
		stack := cognitiveStack(mbti)

		seen := make(map[string]bool)
		for _, f := range stack {
			assert.False(t, seen[f], "%s repeats %s", mbti, f)
			seen[f] = true
		}
		for _, f := range functionCodes {
			assert.True(t, seen[f], "%s is missing %s", mbti, f)
		}
	}
}

func TestAdvanceStack(t *testing.T) {
	stack := cognitiveStack("INTJ") // Ni Te Fi Se | Ne Ti Fe Si

	assert.Equal(t, 1, advanceStack(stack, 0, "Te"))
	assert.Equal(t, 3, advanceStack(stack, 1, "Se"))

	// Scanning wraps past the end of the stack.
	assert.Equal(t, 0, advanceStack(stack, 5, "Ni"))
	assert.Equal(t, 2, advanceStack(stack, 7, "Fi"))

	// Landing on the same function a full cycle later comes back around.
	assert.Equal(t, 3, advanceStack(stack, 3, "Se"))

	// Unknown functions leave the index untouched.
	assert.Equal(t, 4, advanceStack(stack, 4, wildcardFunction))
}

func TestStackIndexOf(t *testing.T) {
	stack := cognitiveStack("INTJ")

	assert.Equal(t, 0, stackIndexOf(stack, "Ni"))
	assert.Equal(t, 7, stackIndexOf(stack, "Si"))
	assert.Equal(t, -1, stackIndexOf(stack, wildcardFunction))
}

func TestLetterDiff(t *testing.T) {
	assert.Equal(t, 0, letterDiff("INTJ", "INTJ"))
	assert.Equal(t, 1, letterDiff("INTJ", "ENTJ"))
	assert.Equal(t, 2, letterDiff("INTJ", "INFP"))
	assert.Equal(t, 4, letterDiff("INTJ", "ESFP"))
}

func TestTemperamentOf(t *testing.T) {
	for group, members := range temperamentGroups {
		for _, mbti := range members {
			assert.Equal(t, group, temperamentOf(mbti), mbti)
		}
	}
}

func TestIsValidMBTI(t *testing.T) {
	for _, mbti := range mbtiTypes {
		require.True(t, isValidMBTI(mbti), mbti)
	}

	assert.False(t, isValidMBTI(""))
	assert.False(t, isValidMBTI("XXXX"))
	assert.False(t, isValidMBTI("intj"))
}
