// Package form はHTMLフォーム入力の解析と検証を提供する。
package form

import (
	"fmt"
	"net/http"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Errors はフィールド名から利用者向けメッセージへの対応。
type Errors map[string]string

// Error はerrorインターフェースを実装する。
func (e Errors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return "invalid form: " + strings.Join(parts, ", ")
}

// Validator はvalidatorタグに基づいてフォームを検証する。
type Validator struct {
	v *validator.Validate
}

// NewValidator はValidatorを生成する。
// エラーのフィールド名にはformタグの値を使う。
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return &Validator{v: v}
}

// Validate はフォームを検証する。問題がなければnilを返す。
func (fv *Validator) Validate(f any) Errors {
	err := fv.v.Struct(f)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return Errors{"_": err.Error()}
	}

	errs := make(Errors, len(verrs))
	for _, fe := range verrs {
		if _, exists := errs[fe.Field()]; exists {
			continue
		}
		errs[fe.Field()] = message(fe)
	}
	return errs
}

// message は検証エラーを利用者向けメッセージに変換する。
func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "入力してください。"
	case "email":
		return "メールアドレスの形式が正しくありません。"
	case "min":
		return fmt.Sprintf("%s文字以上で入力してください。", fe.Param())
	case "max":
		return fmt.Sprintf("%s文字以内で入力してください。", fe.Param())
	case "gte":
		return fmt.Sprintf("%s以上の値を入力してください。", fe.Param())
	case "lte":
		return fmt.Sprintf("%s以下の値を入力してください。", fe.Param())
	case "numeric":
		return "数字で入力してください。"
	case "hexcolor":
		return "#から始まるカラーコードを入力してください。"
	case "url", "http_url":
		return "URLの形式が正しくありません。"
	default:
		return "入力内容が正しくありません。"
	}
}

// SignInForm はサインインフォーム。
type SignInForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required,min=8"`
}

// ParseSignIn はリクエストからSignInFormを読み取る。
func ParseSignIn(r *http.Request) SignInForm {
	return SignInForm{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
}

// SignUpForm はサインアップフォーム。
type SignUpForm struct {
	FullName       string `form:"fullName" validate:"required,min=3,max=255"`
	Email          string `form:"email" validate:"required,email"`
	UniversityID   string `form:"universityId" validate:"required,numeric,max=10"`
	UniversityCard string `form:"universityCard" validate:"required"`
	Password       string `form:"password" validate:"required,min=8"`
}

// ParseSignUp はリクエストからSignUpFormを読み取る。
func ParseSignUp(r *http.Request) SignUpForm {
	return SignUpForm{
		FullName:       strings.TrimSpace(r.PostFormValue("fullName")),
		Email:          strings.TrimSpace(r.PostFormValue("email")),
		UniversityID:   strings.TrimSpace(r.PostFormValue("universityId")),
		UniversityCard: strings.TrimSpace(r.PostFormValue("universityCard")),
		Password:       r.PostFormValue("password"),
	}
}

// UniversityIDNumber は検証済みの学籍番号を数値で返す。
func (f SignUpForm) UniversityIDNumber() int {
	n, _ := strconv.Atoi(f.UniversityID)
	return n
}

// BookForm は蔵書登録フォーム。
type BookForm struct {
	Title       string `form:"title" validate:"required,min=2,max=100"`
	Author      string `form:"author" validate:"required,min=2,max=100"`
	Genre       string `form:"genre" validate:"required,min=2,max=50"`
	Rating      int    `form:"rating" validate:"gte=1,lte=5"`
	TotalCopies int    `form:"totalCopies" validate:"gte=1,lte=10000"`
	Description string `form:"description" validate:"required,min=10,max=1000"`
	CoverURL    string `form:"coverUrl" validate:"required,http_url"`
	CoverColor  string `form:"coverColor" validate:"required,hexcolor,len=7"`
	VideoURL    string `form:"videoUrl" validate:"required,http_url"`
	Summary     string `form:"summary" validate:"required,min=10"`
}

// ParseBook はリクエストからBookFormを読み取る。
// 数値に変換できない値は0として扱い、検証で拒否する。
func ParseBook(r *http.Request) BookForm {
	atoi := func(key string) int {
		n, _ := strconv.Atoi(strings.TrimSpace(r.PostFormValue(key)))
		return n
	}
	return BookForm{
		Title:       strings.TrimSpace(r.PostFormValue("title")),
		Author:      strings.TrimSpace(r.PostFormValue("author")),
		Genre:       strings.TrimSpace(r.PostFormValue("genre")),
		Rating:      atoi("rating"),
		TotalCopies: atoi("totalCopies"),
		Description: strings.TrimSpace(r.PostFormValue("description")),
		CoverURL:    strings.TrimSpace(r.PostFormValue("coverUrl")),
		CoverColor:  strings.TrimSpace(r.PostFormValue("coverColor")),
		VideoURL:    strings.TrimSpace(r.PostFormValue("videoUrl")),
		Summary:     strings.TrimSpace(r.PostFormValue("summary")),
	}
}
