package plugin

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cast"
)

// ParseParamsFromStruct 从结构体的tag解析参数定义
// 支持的tag: name, required, default, description
//
// 示例:
//
//	type Params struct {
//	    Response  string `param:"name=response,required=false,default=,description=是否生成响应适配方法"`
//	    Framework string `param:"name=framework,required=false,default=gin,description=响应适配的 Web 框架"`
//	}
//
//	params := plugin.ParseParamsFromStruct(Params{})
func ParseParamsFromStruct(v any) []ParamDef {
	val := reflect.ValueOf(v)
	typ := val.Type()

	// 如果是指针,解引用
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}

	// 必须是结构体
	if typ.Kind() != reflect.Struct {
		return nil
	}

	var params []ParamDef

	// 遍历所有字段
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)

		// 获取 param tag
		tag := field.Tag.Get("param")
		if tag == "" {
			continue
		}

		// 解析tag
		paramDef := parseParamTag(tag)
		if paramDef.Name != "" {
			params = append(params, paramDef)
		}
	}

	return params
}

// parseParamTag 解析 param tag 字符串
// 格式: name=xxx,required=true,default=xxx,description=xxx
func parseParamTag(tag string) ParamDef {
	var param ParamDef

	// 简单的键值对解析
	pairs := splitTag(tag)
	for key, value := range pairs {
		switch key {
		case "name":
			param.Name = value
		case "required":
			param.Required = value == "true"
		case "default":
			param.Default = value
		case "description":
			param.Description = value
		}
	}

	return param
}

// splitTag 分割tag字符串为键值对
// 格式: key1=value1,key2=value2,...
func splitTag(tag string) map[string]string {
	result := make(map[string]string)

	var key, value strings.Builder
	inKey := true
	escaped := false
	cur := func() *strings.Builder { return lo.Ternary(inKey, &key, &value) }
	flush := func() {
		if key.Len() > 0 {
			result[key.String()] = value.String()
		}
		key.Reset()
		value.Reset()
		inKey = true
	}

	// 按字节处理，多字节字符原样写入
	for i := 0; i < len(tag); i++ {
		ch := tag[i]

		switch {
		case escaped:
			cur().WriteByte(ch)
			escaped = false
		case ch == '\\':
			escaped = true
		case ch == '=' && inKey:
			inKey = false
		case ch == ',':
			flush()
		default:
			cur().WriteByte(ch)
		}
	}
	flush()

	return result
}

// ParseParamBool 解析参数为bool值，无法解析时返回 false
func ParseParamBool(value string) bool {
	return cast.ToBool(value)
}

// ParseAnnotationParams 将注解的参数解析到目标结构体中
// annotation: 注解对象，包含参数键值对
// target: 目标结构体（必须是指针）
// paramDefs: 参数定义列表，用于应用默认值
//
// 示例:
//
//	var params apierrgen.Params
//	err := plugin.ParseAnnotationParams(annotation, &params, paramDefs)
func ParseAnnotationParams(annotation *Annotation, target any, paramDefs []ParamDef) error {
	val := reflect.ValueOf(target)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("参数目标必须是非 nil 指针, 得到: %T", target)
	}

	val = val.Elem()
	typ := val.Type()
	if typ.Kind() != reflect.Struct {
		return fmt.Errorf("参数目标必须指向结构体, 得到: %T", target)
	}

	defaults := lo.SliceToMap(paramDefs, func(def ParamDef) (string, string) {
		return def.Name, def.Default
	})

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		fieldVal := val.Field(i)
		if !fieldVal.CanSet() {
			continue
		}

		tag := field.Tag.Get("param")
		if tag == "" {
			continue
		}
		def := parseParamTag(tag)
		if def.Name == "" {
			continue
		}

		value, ok := annotation.Params[strings.ToLower(def.Name)]
		if !ok || value == "" {
			if def.Required && !ok {
				return fmt.Errorf("@%s 缺少必填参数 %s", annotation.Name, def.Name)
			}
			value = defaults[def.Name]
		}

		if err := setFieldValue(fieldVal, value); err != nil {
			return fmt.Errorf("@%s 参数 %s=%q 无效: %w", annotation.Name, def.Name, value, err)
		}
	}

	return nil
}

// UnknownParams 返回注解中未在 paramDefs 定义的参数名（已排序）
// output 是所有生成器共用的参数，总是被接受
func UnknownParams(annotation *Annotation, paramDefs []ParamDef) []string {
	known := lo.SliceToMap(paramDefs, func(def ParamDef) (string, bool) {
		return strings.ToLower(def.Name), true
	})
	known["output"] = true

	unknown := lo.Filter(lo.Keys(annotation.Params), func(key string, _ int) bool {
		return !known[key]
	})
	slices.Sort(unknown)
	return unknown
}

// setFieldValue 设置字段值，支持 string, int, uint, bool, float 等基本类型
// 空字符串视为零值
func setFieldValue(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, err := cast.ToInt64E(lo.CoalesceOrEmpty(value, "0"))
		if err != nil {
			return err
		}
		field.SetInt(v)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err := cast.ToUint64E(lo.CoalesceOrEmpty(value, "0"))
		if err != nil {
			return err
		}
		field.SetUint(v)
	case reflect.Bool:
		v, err := cast.ToBoolE(lo.CoalesceOrEmpty(value, "false"))
		if err != nil {
			return err
		}
		field.SetBool(v)
	case reflect.Float32, reflect.Float64:
		v, err := cast.ToFloat64E(lo.CoalesceOrEmpty(value, "0"))
		if err != nil {
			return err
		}
		field.SetFloat(v)
	default:
		return fmt.Errorf("不支持的字段类型 %s", field.Kind())
	}
	return nil
}
