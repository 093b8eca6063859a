// Package textnorm 商品名称规范化、slug 生成、相似度计算与价格文本解析
package textnorm

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonAlnumSpace = regexp.MustCompile(`[^a-z0-9\s]+`)
	nonSlugChars  = regexp.MustCompile(`[^a-z0-9\s-]+`)
	multiSpace    = regexp.MustCompile(`\s+`)
	multiDash     = regexp.MustCompile(`-+`)
	priceChars    = regexp.MustCompile(`[^0-9.,]+`)
)

// StripAccents NFD 分解后去掉组合音标（á -> a, ñ -> n）
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Normalize 生成用于匹配的规范化名称：小写、去音标、去标点、合并空白。幂等。
func Normalize(name string) string {
	s := StripAccents(strings.ToLower(name))
	s = nonAlnumSpace.ReplaceAllString(s, "")
	s = multiSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Slugify 生成 URL 友好的标识："Santa Isabel" -> "santa-isabel"
func Slugify(name string) string {
	s := StripAccents(strings.ToLower(strings.TrimSpace(name)))
	s = nonSlugChars.ReplaceAllString(s, "")
	s = multiSpace.ReplaceAllString(s, "-")
	s = multiDash.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Trigrams 按词切分，每个词前补两个空格、后补一个空格后取三元组
func Trigrams(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, word := range strings.Fields(s) {
		padded := []rune("  " + word + " ")
		for i := 0; i+3 <= len(padded); i++ {
			set[string(padded[i:i+3])] = struct{}{}
		}
	}
	return set
}

// Similarity 三元组集合的 Dice 系数，对称，取值 [0,1]，相同字符串为 1
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	ta, tb := Trigrams(a), Trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	shared := 0
	for g := range ta {
		if _, ok := tb[g]; ok {
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(ta)+len(tb))
}

// SearchGrams 每个词内部的连续三字符片段（不足三字符的词取整词），去重排序，用于搜索预过滤
func SearchGrams(s string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(g string) {
		if _, ok := seen[g]; ok {
			return
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	for _, word := range strings.Fields(s) {
		r := []rune(word)
		if len(r) < 3 {
			add(word)
			continue
		}
		for i := 0; i+3 <= len(r); i++ {
			add(string(r[i : i+3]))
		}
	}
	sort.Strings(out)
	return out
}

// ParsePriceText 解析智利格式价格文本："$1.990" -> 1990，"1.990,50" -> 1990.50
func ParsePriceText(text string) (decimal.Decimal, error) {
	s := priceChars.ReplaceAllString(text, "")
	if s == "" {
		return decimal.Zero, fmt.Errorf("价格文本无数字: %q", text)
	}
	// 点为千分位，逗号为小数点
	s = strings.ReplaceAll(s, ".", "")
	s = strings.Replace(s, ",", ".", 1)
	s = strings.ReplaceAll(s, ",", "")
	if s == "" || s == "." {
		return decimal.Zero, fmt.Errorf("价格文本无数字: %q", text)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("解析价格失败 %q: %w", text, err)
	}
	return d, nil
}
