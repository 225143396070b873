package apierrgen

import (
	"fmt"
	"go/ast"
	"go/build"
	"go/constant"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/donutnomad/apierrgen/plugin"
	"github.com/samber/lo"
)

// DeclKind @ApiError 所在声明的实际类型
type DeclKind int

const (
	DeclEnum      DeclKind = iota + 1 // 底层为整数或字符串的具名类型
	DeclStruct                        // 结构体
	DeclInterface                     // 接口
	DeclAlias                         // 类型别名 type A = B
	DeclGeneric                       // 泛型类型
	DeclOther                         // 其他具名类型，如 type F func()、type S []int
	DeclFunc                          // 函数
	DeclMethod                        // 方法
	DeclVar                           // 变量
	DeclConst                         // 常量
)

func (k DeclKind) String() string {
	switch k {
	case DeclEnum:
		return "enum"
	case DeclStruct:
		return "struct"
	case DeclInterface:
		return "interface"
	case DeclAlias:
		return "alias"
	case DeclGeneric:
		return "generic type"
	case DeclOther:
		return "non-enum type"
	case DeclFunc:
		return "func"
	case DeclMethod:
		return "method"
	case DeclVar:
		return "var"
	case DeclConst:
		return "const"
	default:
		return "unknown"
	}
}

// EnumDeclaration 带 @ApiError 的声明
type EnumDeclaration struct {
	Name        string
	PackageName string
	FilePath    string
	Pos         token.Position
	Kind        DeclKind
	Variants    []VariantDeclaration // 仅 Kind == DeclEnum 时有值，按源码顺序
	Aliases     []AliasDeclaration   // 与前面某个变体值相同的常量
}

// VariantDeclaration 枚举的一个变体，即类型为该枚举的包级常量
type VariantDeclaration struct {
	Name       string
	Pos        token.Position
	Value      string // 常量值的精确表示，如 3 或 "a"
	Directives []RawDirective
}

// AliasDeclaration 值与已有变体相同的常量，不生成分支
type AliasDeclaration struct {
	Name       string
	Of         string // 同值的变体
	Pos        token.Position
	Directives []RawDirective
}

// IgnoredDirectives 别名上可识别的注解，这些注解不会生效
func (a AliasDeclaration) IgnoredDirectives() []Directive {
	return lo.FlatMap(a.Directives, func(raw RawDirective, _ int) []Directive {
		ds, _ := ReadDirectives(raw.Text, raw.Pos, a.Name)
		return ds
	})
}

// loadedPackage 类型检查后的包
type loadedPackage struct {
	files []*ast.File
	fset  *token.FileSet
	pkg   *types.Package
	info  *types.Info
}

// PackageLoader 按目录缓存类型检查结果，可并发使用。
// 一次生成过程共用一个，开发模式下每轮重新创建。
type PackageLoader struct {
	mu    sync.Mutex
	cache map[string]*loadResult
}

type loadResult struct {
	once sync.Once
	pkg  *loadedPackage
	err  error
}

// NewPackageLoader 创建包加载器
func NewPackageLoader() *PackageLoader {
	return &PackageLoader{cache: make(map[string]*loadResult)}
}

// load 加载 dir 下包名为 pkgName 的包
func (l *PackageLoader) load(dir, pkgName string) (*loadedPackage, error) {
	key := dir + "\x00" + pkgName

	l.mu.Lock()
	r, ok := l.cache[key]
	if !ok {
		r = &loadResult{}
		l.cache[key] = r
	}
	l.mu.Unlock()

	r.once.Do(func() {
		r.pkg, r.err = loadPackage(dir, pkgName)
	})
	return r.pkg, r.err
}

// loadPackage 解析目录下的源文件并做类型检查。
// 不解析导入，类型检查错误全部忽略，只取本包内可确定的信息。
func loadPackage(dir, pkgName string) (*loadedPackage, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("读取目录 %s 失败: %w", dir, err)
	}

	names := lo.FilterMap(entries, func(e os.DirEntry, _ int) (string, bool) {
		name := e.Name()
		return name, !e.IsDir() && strings.HasSuffix(name, ".go") && !strings.HasSuffix(name, "_test.go")
	})
	slices.Sort(names)

	lp := &loadedPackage{fset: token.NewFileSet()}
	for _, name := range names {
		if ok, err := build.Default.MatchFile(dir, name); err != nil || !ok {
			continue
		}
		path := filepath.Join(dir, name)
		file, err := parser.ParseFile(lp.fset, path, nil, parser.ParseComments)
		if err != nil {
			return nil, fmt.Errorf("解析文件 %s 失败: %w", path, err)
		}
		if file.Name.Name != pkgName || ast.IsGenerated(file) {
			continue
		}
		lp.files = append(lp.files, file)
	}

	lp.info = &types.Info{
		Types: make(map[ast.Expr]types.TypeAndValue),
		Defs:  make(map[*ast.Ident]types.Object),
	}
	conf := types.Config{
		Error: func(error) {},
	}
	// 错误已由 conf.Error 吞掉，返回的 error 只是第一个错误
	lp.pkg, _ = conf.Check(pkgName, lp.fset, lp.files, lp.info)
	return lp, nil
}

// CollectEnum 收集 target 对应的枚举声明及其变体。
// 非枚举声明返回 Kind 不为 DeclEnum 的结果而不是错误，由调用方报告 UnsupportedDeclarationKind。
func CollectEnum(loader *PackageLoader, target *plugin.Target) (*EnumDeclaration, error) {
	decl := &EnumDeclaration{
		Name:        target.Name,
		PackageName: target.PackageName,
		FilePath:    target.FilePath,
		Pos:         target.Location(),
	}

	switch target.Kind {
	case plugin.TargetStruct:
		decl.Kind = DeclStruct
	case plugin.TargetInterface:
		decl.Kind = DeclInterface
	case plugin.TargetFunc:
		decl.Kind = DeclFunc
	case plugin.TargetMethod:
		decl.Kind = DeclMethod
	case plugin.TargetVar:
		decl.Kind = DeclVar
	case plugin.TargetConst:
		decl.Kind = DeclConst
	}
	if decl.Kind != 0 {
		return decl, nil
	}

	if ts, ok := target.Node.(*ast.TypeSpec); ok {
		switch {
		case ts.Assign.IsValid():
			decl.Kind = DeclAlias
		case ts.TypeParams != nil && len(ts.TypeParams.List) > 0:
			decl.Kind = DeclGeneric
		}
		if decl.Kind != 0 {
			return decl, nil
		}
	}

	lp, err := loader.load(target.Dir(), target.PackageName)
	if err != nil {
		return nil, err
	}
	tn, ok := lp.pkg.Scope().Lookup(target.Name).(*types.TypeName)
	if !ok {
		return nil, fmt.Errorf("%s: 在包 %s 中找不到类型 %s", decl.Pos, target.PackageName, target.Name)
	}

	decl.Kind = enumKind(tn.Type().Underlying())
	if decl.Kind != DeclEnum {
		return decl, nil
	}
	decl.Variants, decl.Aliases = collectVariants(lp, tn.Type())
	return decl, nil
}

func enumKind(underlying types.Type) DeclKind {
	switch u := underlying.(type) {
	case *types.Basic:
		switch {
		case u.Kind() == types.Invalid:
			// 底层类型来自未解析的导入，按枚举处理
			return DeclEnum
		case u.Info()&(types.IsInteger|types.IsString) != 0:
			return DeclEnum
		}
	case *types.Struct:
		return DeclStruct
	case *types.Interface:
		return DeclInterface
	}
	return DeclOther
}

// collectVariants 按源码顺序收集类型为 typ 的包级常量。
// 与前面某个变体值相同的常量视为别名，不作为新的变体。
func collectVariants(lp *loadedPackage, typ types.Type) ([]VariantDeclaration, []AliasDeclaration) {
	var (
		variants []VariantDeclaration
		aliases  []AliasDeclaration
		seen     = make(map[string]string) // 值 -> 变体名
	)

	for _, file := range lp.files {
		for _, d := range file.Decls {
			gd, ok := d.(*ast.GenDecl)
			if !ok || gd.Tok != token.CONST {
				continue
			}
			for _, spec := range gd.Specs {
				vs := spec.(*ast.ValueSpec)
				raw := specDirectives(gd, vs)

				for _, name := range vs.Names {
					if name.Name == "_" {
						continue
					}
					c, ok := lp.info.Defs[name].(*types.Const)
					if !ok || !types.Identical(c.Type(), typ) {
						continue
					}

					pos := lp.fset.Position(name.Pos())
					directives := lo.Map(raw, func(text string, _ int) RawDirective {
						return RawDirective{Text: text, Pos: pos}
					})

					value := c.Val().ExactString()
					if c.Val().Kind() != constant.Unknown {
						if of, dup := seen[value]; dup {
							aliases = append(aliases, AliasDeclaration{
								Name:       name.Name,
								Of:         of,
								Pos:        pos,
								Directives: directives,
							})
							continue
						}
						seen[value] = name.Name
					}

					variants = append(variants, VariantDeclaration{
						Name:       name.Name,
						Pos:        pos,
						Value:      value,
						Directives: directives,
					})
				}
			}
		}
	}
	return variants, aliases
}

// specDirectives 常量上的注释：文档注释在前，行尾注释在后。
// 只有单个常量的 const 声明（不带括号）使用声明本身的文档注释。
func specDirectives(gd *ast.GenDecl, vs *ast.ValueSpec) []string {
	doc := vs.Doc
	if doc == nil && !gd.Lparen.IsValid() {
		doc = gd.Doc
	}

	var texts []string
	for _, cg := range []*ast.CommentGroup{doc, vs.Comment} {
		if cg == nil {
			continue
		}
		if text := cg.Text(); strings.TrimSpace(text) != "" {
			texts = append(texts, text)
		}
	}
	return texts
}
