package tokenizer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTermsDropsStopWordsAndStems(t *testing.T) {
	got := Terms("The Java programming language, and its compilers!")
	assert.Equal(t, []string{"java", "programm", "language", "compiler"}, got)
}

func TestCount(t *testing.T) {
	got := Count("Java java JAVA coffee")
	assert.Equal(t, map[string]int{"java": 3, "coffee": 1}, got)
}

func TestWordsSkipsStemming(t *testing.T) {
	got := Words("The Java programming language, and its compilers!")
	assert.Equal(t, []string{"java", "programming", "language", "compilers"}, got)
	assert.Equal(t, map[string]int{"java": 2, "programming": 1}, CountWords("java Programming JAVA a"))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Java", "java"},
		{"programming", "programm"},
		{"the", ""},
		{"x", ""},
		{"!!!", ""},
		{"  Running shoes ", "runn"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestStemKeepsShortWords(t *testing.T) {
	assert.Equal(t, "bus", stem("bus"))
	assert.Equal(t, "ring", stem("ring"))
}

var article = strings.Repeat(`Java is a high-level, class-based, object-oriented programming
language that is designed to have as few implementation dependencies as possible.
It is a general-purpose programming language intended to let programmers write once,
run anywhere, meaning that compiled Java code can run on all platforms that support
Java without the need to recompile. `, 20)

func BenchmarkCount(b *testing.B) {
	b.ReportAllocs()
	b.SetBytes(int64(len(article)))
	for b.Loop() {
		Count(article)
	}
}

func BenchmarkCountParallel(b *testing.B) {
	b.ReportAllocs()
	b.SetBytes(int64(len(article)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			Count(article)
		}
	})
}

func BenchmarkCountVaryingSize(b *testing.B) {
	for _, size := range []int{100, 1000, 5000} {
		text := article[:size]
		b.Run(fmt.Sprintf("bytes_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for b.Loop() {
				Count(text)
			}
		})
	}
}
